/*
Copyright 2025 KineticFire Labs

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package testrun

import "fmt"

// Result is the outcome of one test execution. It is immutable
// once built; counts are internally consistent
// (Succeeded + Failed + Skipped <= Total).
type Result struct {
	Passed    bool
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

func (r *Result) String() string {
	state := "passed"
	if !r.Passed {
		state = "failed"
	}
	return fmt.Sprintf(
		"%s (%d total, %d succeeded, %d failed, %d skipped)",
		state, r.Total, r.Succeeded, r.Failed, r.Skipped,
	)
}
