package remote

import (
	"encoding/json"
	"io"

	"github.com/clearlinux/speedupdate/pkg/model"
)

func decodeJSON(r io.Reader, v interface{}) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return model.NewError(model.KindSchemaError, "decoding response body").WithCause(err)
	}
	return nil
}
