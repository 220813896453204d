package planner

import (
	"testing"

	"github.com/clearlinux/speedupdate/pkg/model"
)

func pkgComplete(to model.CleanName, size uint64) *model.PackageMetadata {
	return &model.PackageMetadata{PackageDataName: model.FileName(nil, to), To: to, Size: size}
}

func pkgPatch(from, to model.CleanName, size uint64) *model.PackageMetadata {
	f := from
	return &model.PackageMetadata{PackageDataName: model.FileName(&f, to), From: &f, To: to, Size: size}
}

func TestComputePlanUpToDate(t *testing.T) {
	from := model.CleanName("5")
	plan, err := ComputePlan(nil, &from, nil, "5")
	if err != nil {
		t.Fatal(err)
	}
	if !plan.UpToDate() {
		t.Errorf("expected UpToDate, got %+v", plan)
	}
}

func TestComputePlanShortestPath(t *testing.T) {
	packages := []*model.PackageMetadata{
		pkgComplete("1", 100),
		pkgPatch("1", "2", 10),
		pkgPatch("2", "3", 10),
		pkgComplete("3", 200), // complete package to 3: an edge from the empty workspace only, so not a path from 1
	}

	from := model.CleanName("1")
	plan, err := ComputePlan(packages, &from, nil, "3")
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Packages) != 2 {
		t.Fatalf("expected a 2-package plan, got %d: %+v", len(plan.Packages), plan.Packages)
	}
	if plan.Packages[0].To != "2" || plan.Packages[1].To != "3" {
		t.Errorf("unexpected plan order: %+v", plan.Packages)
	}
}

func TestComputePlanFromEmptyWorkspace(t *testing.T) {
	packages := []*model.PackageMetadata{
		pkgComplete("1", 100),
		pkgPatch("1", "2", 10),
	}
	plan, err := ComputePlan(packages, nil, nil, "2")
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Packages) != 2 {
		t.Fatalf("expected complete+patch plan, got %+v", plan.Packages)
	}
}

func TestComputePlanSizeTieBreak(t *testing.T) {
	packages := []*model.PackageMetadata{
		pkgPatch("1", "2", 50),
		pkgPatch("1", "2", 10), // same edge count, smaller size should win
	}
	from := model.CleanName("1")
	plan, err := ComputePlan(packages, &from, nil, "2")
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Packages) != 1 || plan.Packages[0].Size != 10 {
		t.Fatalf("expected the smaller single-edge package, got %+v", plan.Packages)
	}
}

func TestComputePlanNoAvailablePath(t *testing.T) {
	packages := []*model.PackageMetadata{
		pkgComplete("1", 100),
	}
	from := model.CleanName("1")
	if _, err := ComputePlan(packages, &from, nil, "99"); err == nil {
		t.Fatal("expected NoAvailablePath error")
	} else if model.KindOf(err) != model.KindNoAvailablePath {
		t.Errorf("error kind = %v, want KindNoAvailablePath", model.KindOf(err))
	}
}
