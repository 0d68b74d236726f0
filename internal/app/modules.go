package app

import (
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/modules/digest"
	"github.com/specialistvlad/stagegrid/modules/fileread"
	"github.com/specialistvlad/stagegrid/modules/fraction"
	"github.com/specialistvlad/stagegrid/modules/print"
	"github.com/specialistvlad/stagegrid/modules/textstats"
)

// CoreModules is the definitive list of transform modules compiled into the
// stagegrid binary.
func CoreModules() []registry.Module {
	return []registry.Module{
		&digest.Module{},
		&fileread.Module{},
		&fraction.Module{},
		&print.Module{},
		&textstats.Module{},
	}
}
