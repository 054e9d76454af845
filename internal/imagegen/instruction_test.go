package imagegen

import (
	"strings"
	"testing"

	"studio/internal/domain"
)

func TestBuildInstruction(t *testing.T) {
	kitchen := domain.Scene{ID: "kitchen", Prompt: "Place the product in a clean, modern kitchen."}
	auto := domain.Scene{ID: domain.SceneAuto, Prompt: "Analyze the product."}

	cases := []struct {
		name        string
		scene       domain.Scene
		description string
		want        []string
		reject      []string
	}{
		{
			name:        "explicit scene with description",
			scene:       kitchen,
			description: "  Red Lipstick ",
			want: []string{
				"TikTok Shop Malaysia",
				`identified this product as: "Red Lipstick"`,
				`(Focus on identifying the "Red Lipstick")`,
				"strictly in the following setting: Place the product in a clean, modern kitchen.",
				"STRICTLY ENGLISH ONLY",
				"OUTPUT MUST BE AN IMAGE",
			},
			reject: []string{"Deduce the best realistic context"},
		},
		{
			name:   "auto scene without description",
			scene:  auto,
			want:   []string{"Deduce the best realistic context", "Malaysian buyers"},
			reject: []string{"identified this product", "Focus on identifying", "Analyze the product."},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildInstruction(tc.scene, tc.description)
			for _, expect := range tc.want {
				if !strings.Contains(got, expect) {
					t.Fatalf("instruction missing %q: %s", expect, got)
				}
			}
			for _, unexpected := range tc.reject {
				if strings.Contains(got, unexpected) {
					t.Fatalf("instruction should not contain %q: %s", unexpected, got)
				}
			}
		})
	}
}
