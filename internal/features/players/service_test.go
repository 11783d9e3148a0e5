package players

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilterActiveExcludesSelf(t *testing.T) {
	now := time.Now()
	all := []*Player{
		{Code: "AAA11", LastActive: now},
		{Code: "BBB22", LastActive: now},
	}

	got := FilterActive(all, "AAA11", 5*time.Minute, now)

	assert.Len(t, got, 1)
	assert.Equal(t, "BBB22", got[0].Code)
}

func TestFilterActiveExcludesStale(t *testing.T) {
	now := time.Now()
	all := []*Player{
		{Code: "AAA11", LastActive: now.Add(-1 * time.Minute)},
		{Code: "BBB22", LastActive: now.Add(-10 * time.Minute)},
		{Code: "CCC33", LastActive: now.Add(-5 * time.Minute)}, // ровно на границе окна
	}

	got := FilterActive(all, "ZZZ99", 5*time.Minute, now)

	codes := make([]string, 0, len(got))
	for _, p := range got {
		codes = append(codes, p.Code)
	}
	assert.Equal(t, []string{"AAA11", "CCC33"}, codes)
}

func TestFilterActiveEmpty(t *testing.T) {
	got := FilterActive(nil, "AAA11", 5*time.Minute, time.Now())
	assert.Empty(t, got)
}
