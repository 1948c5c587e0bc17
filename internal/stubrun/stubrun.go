/*
Copyright © 2026 Tekian

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
// Package stubrun provides a scripted command runner for testing.
package stubrun

import (
	"fmt"
	"sync"

	"github.com/tekian/cargo-deltabuild/cmdrun"
)

// Call records one command invocation made against the stub.
type Call struct {
	Name string
	Args []string
	Dir  string
}

type step struct {
	result *cmdrun.Result
	err    error
}

// Runner implements cmdrun.Runner by replaying a scripted sequence of
// results in order. Running past the end of the script is an error, so
// tests notice unexpected invocations.
type Runner struct {
	mu    sync.Mutex
	steps []step
	calls []Call
}

// New creates an empty scripted runner.
func New() *Runner {
	return &Runner{}
}

// Expect appends one scripted outcome. It returns the runner for chaining.
func (r *Runner) Expect(result *cmdrun.Result, err error) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step{result: result, err: err})
	return r
}

// Run implements cmdrun.Runner.
func (r *Runner) Run(name string, args []string, dir string) (*cmdrun.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, Call{Name: name, Args: args, Dir: dir})
	if len(r.steps) == 0 {
		return nil, fmt.Errorf("unexpected command: %s %v", name, args)
	}
	next := r.steps[0]
	r.steps = r.steps[1:]
	return next.result, next.err
}

// Calls returns the invocations recorded so far.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// OK builds a successful result with the given stdout.
func OK(stdout string) *cmdrun.Result {
	return &cmdrun.Result{Stdout: []byte(stdout)}
}

// Fail builds a non-zero result with the given stderr.
func Fail(code int, stderr string) *cmdrun.Result {
	return &cmdrun.Result{Stderr: []byte(stderr), ExitCode: code}
}
