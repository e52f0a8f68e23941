package zfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrNotSnapshot = errors.New("name is not a snapshot")

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandError carries the stderr of a failed zfs invocation.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("zfs %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// PartialDestroyError reports a destroy that failed after some of its
// dataset groups were already removed.
type PartialDestroyError struct {
	Destroyed []string // full names gone before the failing call
	Err       error
}

func (e *PartialDestroyError) Error() string {
	return fmt.Sprintf("%d snapshots destroyed before failure: %v", len(e.Destroyed), e.Err)
}

func (e *PartialDestroyError) Unwrap() error {
	return e.Err
}

// CommandClient drives the zfs(8) command line tool.
type CommandClient struct {
	Binary string
	Run    Runner
}

// NewCommandClient returns a client for the zfs binary on PATH.
func NewCommandClient() *CommandClient {
	return &CommandClient{Binary: "zfs", Run: execRunner}
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &CommandError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}

// List runs: zfs list -H -t snapshot -o name -s name -r <pool>
func (c *CommandClient) List(ctx context.Context, pool string) ([]string, error) {
	out, err := c.Run(ctx, c.Binary, "list", "-H", "-t", "snapshot", "-o", "name", "-s", "name", "-r", pool)
	if err != nil {
		return nil, fmt.Errorf("list snapshots of %s: %w", pool, err)
	}
	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// Destroy issues one "zfs destroy dataset@a,b,c" per dataset, in the order
// datasets first appear in names. The first failing call aborts the rest;
// if earlier groups succeeded the error is a *PartialDestroyError.
func (c *CommandClient) Destroy(ctx context.Context, names []string) error {
	groups, err := GroupByDataset(names)
	if err != nil {
		return err
	}
	var destroyed []string
	for _, g := range groups {
		if _, err := c.Run(ctx, c.Binary, "destroy", g.Argument()); err != nil {
			err = fmt.Errorf("destroy %s: %w", g.Dataset, err)
			if len(destroyed) > 0 {
				return &PartialDestroyError{Destroyed: destroyed, Err: err}
			}
			return err
		}
		for _, suffix := range g.Suffixes {
			destroyed = append(destroyed, g.Dataset+"@"+suffix)
		}
	}
	return nil
}

// DatasetGroup is the set of snapshot suffixes destroyed in one call.
type DatasetGroup struct {
	Dataset  string
	Suffixes []string
}

// Argument renders the group in zfs's comma syntax: dataset@s1,s2,s3
func (g DatasetGroup) Argument() string {
	return g.Dataset + "@" + strings.Join(g.Suffixes, ",")
}

// GroupByDataset splits full snapshot names per dataset, keeping first-seen
// dataset order and the order of snapshots within each dataset.
func GroupByDataset(names []string) ([]DatasetGroup, error) {
	var groups []DatasetGroup
	index := map[string]int{}
	for _, name := range names {
		dataset, suffix, ok := strings.Cut(name, "@")
		if !ok || dataset == "" || suffix == "" {
			return nil, fmt.Errorf("%w: %q", ErrNotSnapshot, name)
		}
		i, seen := index[dataset]
		if !seen {
			i = len(groups)
			index[dataset] = i
			groups = append(groups, DatasetGroup{Dataset: dataset})
		}
		groups[i].Suffixes = append(groups[i].Suffixes, suffix)
	}
	return groups, nil
}
