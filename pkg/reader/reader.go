// Package reader resolves Unknown outputs by fanning read commands out
// over the transport with a bounded in-flight set. One command failing
// never cancels its siblings; every scheduled output resolves to Known or
// Null before ReadAll returns.
package reader

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shellform/shellform/pkg/diag"
	"github.com/shellform/shellform/pkg/resource"
	"github.com/shellform/shellform/pkg/transports"
	"github.com/shellform/shellform/pkg/value"
)

// task is one scheduled read command, carrying the output key it
// re-associates to after the unordered gather.
type task struct {
	key       string
	spec      resource.ReadSpec
	faillible bool
}

// outcome is the raw result of one executed task.
type outcome struct {
	task
	res *transports.ExecResult
	err error
}

// Stats counts the executor's activity for metrics.
type Stats struct {
	// Scheduled is the number of outputs that needed a read.
	Scheduled int

	// Failed is the number of scheduled outputs that resolved to Null.
	Failed int
}

// ReadAll executes the read command of every output currently Unknown in
// outputs, bounded by concurrency workers, and stores the results back
// into the outputs map. An Unknown output with no matching read rule is a
// hard error. Failures resolve the output to Null and are reported as
// errors, downgraded to warnings when faillibleOverride or the read's own
// Faillible flag is set. All diagnostics accumulate on diags.
func ReadAll(
	ctx context.Context,
	t transports.Transport,
	reads map[string]resource.ReadSpec,
	outputs value.StringMap,
	env []transports.EnvVar,
	faillibleOverride bool,
	concurrency int,
	diags *diag.Diagnostics,
) Stats {
	var stats Stats
	inner, ok := outputs.Get()
	if !ok {
		return stats
	}
	if concurrency <= 0 {
		concurrency = resource.DefaultConcurrency
	}

	var tasks []task
	for name, val := range inner {
		if !val.IsUnknown() {
			continue
		}
		spec, declared := reads[name]
		if !declared {
			inner[name] = value.Null[string]()
			stats.Scheduled++
			stats.Failed++
			diags.Error(
				"Unknown output has no `read` block associated",
				fmt.Sprintf("the output `state.%s` is unknown, and there is no `read[%q]` block to give it a value", name, name),
				diag.Root("state").Key(name),
			)
			continue
		}
		tasks = append(tasks, task{
			key:       name,
			spec:      spec,
			faillible: faillibleOverride || spec.Faillible,
		})
	}
	stats.Scheduled += len(tasks)
	if len(tasks) == 0 {
		return stats
	}

	workers := concurrency
	if len(tasks) < workers {
		workers = len(tasks)
	}

	queue := make(chan task, len(tasks))
	for _, tk := range tasks {
		queue <- tk
	}
	close(queue)

	results := make(chan outcome, len(tasks))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tk := range queue {
				res, err := t.Execute(ctx, tk.spec.Cmd, tk.spec.Dir, resource.MergeEnv(env, tk.spec.Env))
				results <- outcome{task: tk, res: res, err: err}
			}
		}()
	}
	wg.Wait()
	close(results)

	// Outcome handling is single-threaded: the diagnostics collector and
	// the outputs map are not safe for concurrent writes.
	for out := range results {
		resolved := resolve(out, diags)
		if resolved.IsNull() {
			stats.Failed++
		}
		inner[out.key] = resolved
	}
	return stats
}

// resolve applies the per-command outcome policy and returns the output's
// final value. Any failure path yields Null; Unknown never survives.
func resolve(out outcome, diags *diag.Diagnostics) value.String {
	attrPath := diag.Root("read").Key(out.key).Attr("cmd")

	severity := diag.SeverityError
	if out.faillible {
		severity = diag.SeverityWarning
	}

	if out.err != nil {
		diags.Report(severity, "Failed to read resource state", out.err.Error(), attrPath)
		return value.Null[string]()
	}
	if out.res.Status != 0 {
		diags.Report(
			severity,
			fmt.Sprintf("`read` failed with status code: %d", out.res.Status),
			out.res.Stderr,
			attrPath,
		)
		return value.Null[string]()
	}
	if out.res.Stderr != "" {
		diags.Warning("`read` succeeded but stderr was not empty", out.res.Stderr, attrPath)
	}

	stdout := out.res.Stdout
	if out.spec.StripTrailingNewline && strings.HasSuffix(stdout, "\n") {
		stdout = stdout[:len(stdout)-1]
	}
	return value.Known(stdout)
}
