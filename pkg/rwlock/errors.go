package rwlock

import "gitlab.com/tozd/go/errors"

var (
	ErrReleased        = errors.Base("scope already released")
	ErrAlreadyUpgraded = errors.Base("scope already upgraded")
)

func errUpgrade(released bool) error {
	if released {
		return errors.WithStack(ErrReleased)
	}
	return errors.WithStack(ErrAlreadyUpgraded)
}
