package codec

import (
	"io"
	"os/exec"

	"github.com/clearlinux/speedupdate/log"
	"github.com/clearlinux/speedupdate/pkg/model"
)

// externalWriter filters a Writer through an external program's stdin,
// the same shape as swupd's ExternalWriter: every Write goes to the
// child's stdin, the child's stdout feeds the wrapped Writer directly.
type externalWriter struct {
	cmd   *exec.Cmd
	input io.WriteCloser
}

func newExternalWriter(w io.Writer, program string, args ...string) (*externalWriter, error) {
	cmd := exec.Command(program, args...)
	input, err := cmd.StdinPipe()
	if err != nil {
		return nil, model.NewError(model.KindCodecError, "starting %s", program).WithCause(err)
	}
	cmd.Stdout = w
	if err := cmd.Start(); err != nil {
		_ = input.Close()
		log.Error(log.Codec, "starting %s: %s", program, err)
		return nil, model.NewError(model.KindCodecError, "starting %s", program).WithCause(err)
	}
	return &externalWriter{cmd: cmd, input: input}, nil
}

func (ew *externalWriter) Write(p []byte) (int, error) {
	return ew.input.Write(p)
}

func (ew *externalWriter) Finish() error {
	if err := ew.input.Close(); err != nil {
		return err
	}
	return ew.cmd.Wait()
}

// externalReader filters a Reader through an external program: its
// stdin is fed from r, its stdout is what Read returns, mirroring
// swupd's ExternalReader.
type externalReader struct {
	cmd    *exec.Cmd
	output io.ReadCloser
}

func newExternalReader(r io.Reader, program string, args ...string) (*externalReader, error) {
	cmd := exec.Command(program, args...)
	cmd.Stdin = r
	output, err := cmd.StdoutPipe()
	if err != nil {
		return nil, model.NewError(model.KindCodecError, "starting %s", program).WithCause(err)
	}
	if err := cmd.Start(); err != nil {
		_ = output.Close()
		log.Error(log.Codec, "starting %s: %s", program, err)
		return nil, model.NewError(model.KindCodecError, "starting %s", program).WithCause(err)
	}
	return &externalReader{cmd: cmd, output: output}, nil
}

func (er *externalReader) Read(p []byte) (int, error) {
	return er.output.Read(p)
}
