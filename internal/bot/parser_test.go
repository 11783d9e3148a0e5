package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()

	tests := []struct {
		in        string
		wantCmd   string
		wantArgs  []string
		isCommand bool
	}{
		{"!код ABC12", "код", []string{"ABC12"}, true},
		{"!сделка xyz98 честно", "сделка", []string{"xyz98", "честно"}, true},
		{".баланс", "баланс", nil, true},
		{"/start", "start", nil, true},
		{"!КУПИТЬ 2 3", "купить", []string{"2", "3"}, true},
		{"  !рейтинг  ", "рейтинг", nil, true},
		{"привет всем", "", nil, false},
		{"!", "", nil, false},
		{"", "", nil, false},
	}

	for _, tt := range tests {
		cmd, args, ok := p.ParseCommand(tt.in)
		assert.Equal(t, tt.isCommand, ok, "input %q", tt.in)
		assert.Equal(t, tt.wantCmd, cmd, "input %q", tt.in)
		assert.Equal(t, tt.wantArgs, args, "input %q", tt.in)
	}
}
