package utils

import "errors"

type PermError string

func (e PermError) Error() string {
	return string(e)
}

func (e PermError) IsPermanent() bool {
	return true
}

// IsPermanent reports whether err, or anything it wraps, is a PermError
func IsPermanent(err error) bool {
	var perm PermError
	return errors.As(err, &perm)
}
