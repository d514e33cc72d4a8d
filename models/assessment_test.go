package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputePattern(t *testing.T) {
	cases := []struct {
		name string
		a    Assessment
		want string
	}{
		{"heavy flow dominates", Assessment{CycleLengthDays: 28, PeriodLengthDays: 5, FlowLevel: 5}, ASSESSMENT_PATTERN_HEAVY},
		{"heavy flow beats irregular cycle", Assessment{CycleLengthDays: 45, PeriodLengthDays: 5, FlowLevel: 4}, ASSESSMENT_PATTERN_HEAVY},
		{"light flow short period", Assessment{CycleLengthDays: 28, PeriodLengthDays: 2, FlowLevel: 1}, ASSESSMENT_PATTERN_LIGHT},
		{"light flow normal period is not light", Assessment{CycleLengthDays: 28, PeriodLengthDays: 5, FlowLevel: 1}, ASSESSMENT_PATTERN_NORMAL},
		{"short cycle irregular", Assessment{CycleLengthDays: 19, PeriodLengthDays: 4, FlowLevel: 2}, ASSESSMENT_PATTERN_IRREGULAR},
		{"long cycle irregular", Assessment{CycleLengthDays: 40, PeriodLengthDays: 4, FlowLevel: 3}, ASSESSMENT_PATTERN_IRREGULAR},
		{"typical answers normal", Assessment{CycleLengthDays: 28, PeriodLengthDays: 5, FlowLevel: 3}, ASSESSMENT_PATTERN_NORMAL},
		{"no answers inconclusive", Assessment{}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.ComputePattern())
		})
	}
}
