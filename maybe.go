package dbn

import "github.com/pkg/errors"

// maybe chains fallible steps. Once a step fails the following ones are skipped and err
// holds the first failure.
type maybe struct {
	err error
}

func (m *maybe) do(f func() error) {
	if m.err != nil {
		return
	}
	if err := f(); err != nil {
		m.err = errors.WithStack(err)
	}
}
