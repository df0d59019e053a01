package envstruct_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/abishek0504/iron-path-app-sub003/internal/envstruct"
	"github.com/google/go-cmp/cmp"
)

func TestPopulate(t *testing.T) {
	noEnv := func(_ string) (string, bool) { return "", false }

	tests := []struct {
		name      string
		v         any
		lookupEnv func(string) (string, bool)
		want      any
		wantErr   error
	}{
		{
			name:      "nil",
			v:         nil,
			lookupEnv: noEnv,
			want:      nil,
			wantErr:   envstruct.ErrInvalidValue,
		},
		{
			name:      "not pointer",
			v:         struct{}{},
			lookupEnv: noEnv,
			want:      nil,
			wantErr:   envstruct.ErrInvalidValue,
		},
		{
			name:      "empty struct",
			v:         &struct{}{},
			lookupEnv: noEnv,
			want:      &struct{}{},
			wantErr:   nil,
		},
		{
			name: "empty env",
			v: &struct { //nolint:exhaustruct // populated later
				EnvVar string `env:"ENV_VAR"`
			}{},
			lookupEnv: noEnv,
			want:      nil,
			wantErr:   envstruct.ErrEnvNotSet,
		},
		{
			name: "picks correct env variable",
			v: &struct { //nolint:exhaustruct // populated later
				EnvVar     string `env:"ENV_VAR"`
				EnvVar2    string `env:"ENV_VAR2"`
				OtherValue string
			}{},
			lookupEnv: func(s string) (string, bool) { return strings.ToLower(s), true },
			want: &struct {
				EnvVar     string `env:"ENV_VAR"`
				EnvVar2    string `env:"ENV_VAR2"`
				OtherValue string
			}{EnvVar: "env_var", EnvVar2: "env_var2", OtherValue: ""},
			wantErr: nil,
		},
		{
			name: "handles defaults for every supported kind",
			v: &struct { //nolint:exhaustruct // populated later
				URL       string  `env:"URL" envDefault:":memory:"`
				Lookback  int     `env:"LOOKBACK" envDefault:"6"`
				Threshold float64 `env:"THRESHOLD" envDefault:"0.85"`
				Verbose   bool    `env:"VERBOSE" envDefault:"true"`
			}{},
			lookupEnv: noEnv,
			want: &struct {
				URL       string  `env:"URL" envDefault:":memory:"`
				Lookback  int     `env:"LOOKBACK" envDefault:"6"`
				Threshold float64 `env:"THRESHOLD" envDefault:"0.85"`
				Verbose   bool    `env:"VERBOSE" envDefault:"true"`
			}{URL: ":memory:", Lookback: 6, Threshold: 0.85, Verbose: true},
			wantErr: nil,
		},
		{
			name: "environment overrides default",
			v: &struct { //nolint:exhaustruct // populated later
				Lookback int `env:"LOOKBACK" envDefault:"6"`
			}{},
			lookupEnv: func(_ string) (string, bool) { return "3", true },
			want: &struct {
				Lookback int `env:"LOOKBACK" envDefault:"6"`
			}{Lookback: 3},
			wantErr: nil,
		},
		{
			name: "unparsable int",
			v: &struct { //nolint:exhaustruct // populated later
				Lookback int `env:"LOOKBACK"`
			}{},
			lookupEnv: func(_ string) (string, bool) { return "six", true },
			want:      nil,
			wantErr:   envstruct.ErrParse,
		},
		{
			name: "unsupported kind",
			v: &struct { //nolint:exhaustruct // populated later
				Weights []float64 `env:"WEIGHTS" envDefault:"1"`
			}{},
			lookupEnv: noEnv,
			want:      nil,
			wantErr:   envstruct.ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := envstruct.Populate(tt.v, tt.lookupEnv)

			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Populate() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Populate() unexpected error = %v", err)
				}
				if diff := cmp.Diff(tt.want, tt.v); diff != "" {
					t.Errorf("Populate() mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}
