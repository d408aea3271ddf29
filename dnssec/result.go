package dnssec

// StepResult is the validation outcome for a single zone hop in the
// delegation chain (e.g. ".", "com.", "example.com."), produced while
// walking down towards the queried name, per spec.md §4.9.
type StepResult struct {
	Zone string

	State             AuthenticationResult
	DenialOfExistence DenialOfExistenceState
	Err               error
}

// Summarize folds a chain of per-zone StepResults into the single overall
// AuthenticationResult spec.md §2 requires, applying the same cascade the
// teacher's Authenticator.Result used: any Bogus step is fatal; a drop from
// Secure to anything else requires a denial-of-existence proof at the
// point of the drop, otherwise the whole chain is Bogus; a final step that
// carries an NSEC3 opt-out proof makes the result Insecure; and the final
// step's own state otherwise carries through.
func Summarize(steps []StepResult) (AuthenticationResult, DenialOfExistenceState, error) {
	if len(steps) == 0 {
		return Unknown, NotFound, nil
	}

	for _, s := range steps {
		if s.State == Bogus {
			return Bogus, NotFound, s.Err
		}
	}

	for i, s := range steps {
		if s.State == Secure {
			continue
		}

		if i == 0 {
			return s.State, s.DenialOfExistence, s.Err
		}

		prev := steps[i-1]
		if prev.DenialOfExistence != NotFound {
			return Insecure, prev.DenialOfExistence, s.Err
		}
		return Bogus, prev.DenialOfExistence, s.Err
	}

	last := steps[len(steps)-1]
	if last.DenialOfExistence == Nsec3OptOut {
		return Insecure, last.DenialOfExistence, last.Err
	}
	return last.State, last.DenialOfExistence, last.Err
}
