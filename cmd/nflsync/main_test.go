package main

import (
	"testing"

	"github.com/urfave/cli/v2"
)

func TestParseSeasonsFlag(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{
			name:  "single season",
			input: "2024",
			want:  []int{2024},
		},
		{
			name:  "multiple seasons",
			input: "2022,2023,2024",
			want:  []int{2022, 2023, 2024},
		},
		{
			name:  "spaces tolerated",
			input: " 2023 , 2024 ",
			want:  []int{2023, 2024},
		},
		{
			name:    "non-numeric",
			input:   "twentytwentyfour",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSeasonsFlag(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseSeasonsFlag(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSeasonsFlag(%q) error: %v", tt.input, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseSeasonsFlag(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("parseSeasonsFlag(%q)[%d] = %d, want %d", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestStatsCommandFlagParsing(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want func(c *cli.Context) error
	}{
		{
			name: "advanced-only flag",
			args: []string{"app", "stats", "--advanced-only"},
			want: func(c *cli.Context) error {
				if !c.Bool("advanced-only") {
					t.Error("expected advanced-only to be true")
				}
				return nil
			},
		},
		{
			name: "include-advanced defaults true",
			args: []string{"app", "stats"},
			want: func(c *cli.Context) error {
				if !c.Bool("include-advanced") {
					t.Error("expected include-advanced to default to true")
				}
				return nil
			},
		},
		{
			name: "include-advanced disabled",
			args: []string{"app", "stats", "--include-advanced=false"},
			want: func(c *cli.Context) error {
				if c.Bool("include-advanced") {
					t.Error("expected include-advanced to be false")
				}
				return nil
			},
		},
		{
			name: "seasons override",
			args: []string{"app", "stats", "--seasons", "2023,2024"},
			want: func(c *cli.Context) error {
				if c.String("seasons") != "2023,2024" {
					t.Errorf("seasons = %q", c.String("seasons"))
				}
				return nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &cli.App{
				Commands: []*cli.Command{
					{
						Name: "stats",
						Flags: []cli.Flag{
							seasonsFlag(),
							&cli.BoolFlag{Name: "advanced-only"},
							&cli.BoolFlag{Name: "include-advanced", Value: true},
						},
						Action: tt.want,
					},
				},
			}
			if err := app.Run(tt.args); err != nil {
				t.Fatalf("app.Run() error: %v", err)
			}
		})
	}
}
