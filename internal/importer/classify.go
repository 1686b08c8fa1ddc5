package importer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/dataforge/internal/models"
)

var numericRe = regexp.MustCompile(`^\s*-?(\d+\.?|\.\d+|\d+\.\d+)([eE][-+]?\d+)?\s*$`)

// maxSafeInteger bounds the numbers that survive a float64 round trip
// unchanged; larger numeric literals stay strings.
const maxSafeInteger = 1<<53 - 1

// Classify types a raw text cell:
//
//	"true", "TRUE", "True"    → boolean true (likewise false)
//	numeric literal           → number
//	""                        → null
//	anything else             → string
func Classify(s string) models.Value {
	switch s {
	case "":
		return models.Null
	case "true", "TRUE", "True":
		return models.Bool(true)
	case "false", "FALSE", "False":
		return models.Bool(false)
	}
	if numericRe.MatchString(s) {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && math.Abs(f) <= maxSafeInteger {
			return models.Num(f)
		}
	}
	return models.Str(s)
}
