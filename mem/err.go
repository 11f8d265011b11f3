package mem

import (
	"errors"

	"github.com/timbot1789/intel-8080-emu/translate"
)

var f = translate.From

var (
	ErrLengthExceedsBuffer = errors.New(f("length exceeds buffer"))
	ErrCountExceedsSource  = errors.New(f("count exceeds source"))
	ErrCountExceedsTarget  = errors.New(f("count exceeds target"))
	ErrRegionsOverlap      = errors.New(f("source and target overlap"))
)
