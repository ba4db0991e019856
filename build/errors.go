package build

import "strings"

// JoinErrors joins an arbitrary number of errors into a single error,
// skipping any nil entries. Returns nil if every entry is nil.
func JoinErrors(errs []error, sep string) error {
	var msgs []string
	for _, err := range errs {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return errStrings(strings.Join(msgs, sep))
}

type errStrings string

func (e errStrings) Error() string { return string(e) }
