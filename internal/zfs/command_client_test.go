package zfs

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type recordedCall struct {
	name string
	args []string
}

func fakeRunner(out string, failOn int, calls *[]recordedCall) Runner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedCall{name: name, args: args})
		if failOn > 0 && len(*calls) == failOn {
			return nil, &CommandError{Args: args, Stderr: "dataset is busy", Err: errors.New("exit status 1")}
		}
		return []byte(out), nil
	}
}

func TestListParsesOutput(t *testing.T) {
	var calls []recordedCall
	c := &CommandClient{Binary: "zfs", Run: fakeRunner("tank@2020-01-01-0000-00-A\n\ntank/os@2020-01-02-0000-00-B\n", 0, &calls)}

	names, err := c.List(context.Background(), "tank")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 2 || names[0] != "tank@2020-01-01-0000-00-A" || names[1] != "tank/os@2020-01-02-0000-00-B" {
		t.Errorf("unexpected names: %v", names)
	}
	expectedArgs := "list -H -t snapshot -o name -s name -r tank"
	if got := strings.Join(calls[0].args, " "); got != expectedArgs {
		t.Errorf("args = %q, expected %q", got, expectedArgs)
	}
}

func TestGroupByDataset(t *testing.T) {
	groups, err := GroupByDataset([]string{
		"tank/os@2020-07-13-2354-09-CHECKPOINT",
		"tank@2020-01-01-0000-00-A",
		"tank/os@2020-05-01-1100-00-CHECKPOINT",
		"tank/os@2020-09-05-1300-00-CHECKPOINT",
	})
	if err != nil {
		t.Fatalf("GroupByDataset failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	expected := "tank/os@2020-07-13-2354-09-CHECKPOINT,2020-05-01-1100-00-CHECKPOINT,2020-09-05-1300-00-CHECKPOINT"
	if got := groups[0].Argument(); got != expected {
		t.Errorf("Argument() = %q, expected %q", got, expected)
	}
	if got := groups[1].Argument(); got != "tank@2020-01-01-0000-00-A" {
		t.Errorf("Argument() = %q", got)
	}
}

func TestGroupByDatasetRejectsDatasets(t *testing.T) {
	for _, name := range []string{"tank", "tank/os", "@snap", "tank@"} {
		if _, err := GroupByDataset([]string{name}); !errors.Is(err, ErrNotSnapshot) {
			t.Errorf("GroupByDataset(%q) error = %v, expected ErrNotSnapshot", name, err)
		}
	}
}

func TestDestroyOneCallPerDataset(t *testing.T) {
	var calls []recordedCall
	c := &CommandClient{Binary: "zfs", Run: fakeRunner("", 0, &calls)}

	err := c.Destroy(context.Background(), []string{
		"tank/a@2020-01-01-0000-00-X",
		"tank/b@2020-01-01-0000-00-X",
		"tank/a@2020-01-02-0000-00-X",
	})
	if err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 destroy calls, got %d", len(calls))
	}
	if got := strings.Join(calls[0].args, " "); got != "destroy tank/a@2020-01-01-0000-00-X,2020-01-02-0000-00-X" {
		t.Errorf("first call = %q", got)
	}
	if got := strings.Join(calls[1].args, " "); got != "destroy tank/b@2020-01-01-0000-00-X" {
		t.Errorf("second call = %q", got)
	}
}

func TestDestroyStopsOnFailure(t *testing.T) {
	var calls []recordedCall
	c := &CommandClient{Binary: "zfs", Run: fakeRunner("", 1, &calls)}

	err := c.Destroy(context.Background(), []string{"tank/a@2020-01-01-0000-00-X", "tank/b@2020-01-01-0000-00-X"})
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Stderr != "dataset is busy" {
		t.Errorf("expected CommandError with stderr, got %v", err)
	}
	if len(calls) != 1 {
		t.Errorf("expected to stop after first failure, got %d calls", len(calls))
	}
}

func TestDestroyReportsPartialProgress(t *testing.T) {
	var calls []recordedCall
	c := &CommandClient{Binary: "zfs", Run: fakeRunner("", 2, &calls)}

	err := c.Destroy(context.Background(), []string{
		"tank/a@2020-01-01-0000-00-X",
		"tank/a@2020-01-02-0000-00-X",
		"tank/b@2020-01-01-0000-00-X",
	})

	var partial *PartialDestroyError
	if !errors.As(err, &partial) {
		t.Fatalf("expected *PartialDestroyError, got %T: %v", err, err)
	}
	want := []string{"tank/a@2020-01-01-0000-00-X", "tank/a@2020-01-02-0000-00-X"}
	if strings.Join(partial.Destroyed, " ") != strings.Join(want, " ") {
		t.Errorf("Destroyed = %v, expected %v", partial.Destroyed, want)
	}
	var ce *CommandError
	if !errors.As(err, &ce) {
		t.Errorf("zfs error lost from chain: %v", err)
	}
}

func TestDestroyFirstGroupFailureIsNotPartial(t *testing.T) {
	var calls []recordedCall
	c := &CommandClient{Binary: "zfs", Run: fakeRunner("", 1, &calls)}

	err := c.Destroy(context.Background(), []string{"tank/a@2020-01-01-0000-00-X", "tank/b@2020-01-01-0000-00-X"})
	var partial *PartialDestroyError
	if err == nil || errors.As(err, &partial) {
		t.Errorf("expected a plain failure, got %v", err)
	}
}
