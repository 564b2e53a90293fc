package models

import "errors"

var (
	ErrAmbiguousPairing = errors.New("legacy pairing populates more than one direction")
	ErrEmptyPairing     = errors.New("legacy pairing has no complete direction")
)

// LegacyPairing is the role-qualified pairing stored by the first schema, where a
// message carried one of student->teacher or teacher->student.
type LegacyPairing struct {
	FromStudent string
	ToTeacher   string
	FromTeacher string
	ToStudent   string
}

// Normalize maps the role-qualified pairing onto sender and recipient.
// Exactly one complete direction must be set.
func (p LegacyPairing) Normalize() (sender, recipient string, err error) {
	studentSide := p.FromStudent != "" || p.ToTeacher != ""
	teacherSide := p.FromTeacher != "" || p.ToStudent != ""

	switch {
	case studentSide && teacherSide:
		return "", "", ErrAmbiguousPairing
	case studentSide && p.FromStudent != "" && p.ToTeacher != "":
		return p.FromStudent, p.ToTeacher, nil
	case teacherSide && p.FromTeacher != "" && p.ToStudent != "":
		return p.FromTeacher, p.ToStudent, nil
	default:
		return "", "", ErrEmptyPairing
	}
}
