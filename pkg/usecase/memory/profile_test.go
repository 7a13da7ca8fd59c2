package memory_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/usecase/memory"
	"github.com/m-mizutani/gt"
)

func TestBuildProfileMissingFields(t *testing.T) {
	profile := memory.BuildProfile(context.Background(), &model.Business{Name: "Acme"})

	gt.S(t, profile).Contains("- Name: Acme")
	gt.S(t, profile).Contains("- Industry: Not specified")
	gt.S(t, profile).Contains("- Description: Not specified")
	gt.S(t, profile).Contains("TARGET AUDIENCE:\nNot specified")
	gt.S(t, profile).Contains("BRAND VOICE & TONE:\nprofessional")
	gt.S(t, profile).Contains("BRAND COLORS:\nNot specified")
	gt.S(t, profile).Contains("SOCIAL MEDIA PRESENCE:\nNot specified")
	gt.S(t, profile).Contains("BUSINESS GOALS:\nNot specified")
}

func TestBuildProfileNil(t *testing.T) {
	profile := memory.BuildProfile(context.Background(), nil)
	gt.S(t, profile).Contains("- Name: Not specified")
	gt.S(t, profile).Contains("IMPORTANT INSTRUCTIONS:")
}

func TestBuildProfileFields(t *testing.T) {
	testCases := map[string]struct {
		business *model.Business
		expect   []string
	}{
		"decoded values": {
			business: &model.Business{
				Name:           "Acme",
				Industry:       "Retail",
				Description:    "Hardware store",
				TargetAudience: "Homeowners",
				BrandTone:      "friendly",
				BrandColors:    map[string]any{"primary": "#ff0000", "accent": "#00ff00"},
				SocialLinks:    map[string]string{"instagram": "https://instagram.com/acme"},
				Goals:          []any{"Grow sales", "Open second store"},
			},
			expect: []string{
				"- Industry: Retail",
				"- Description: Hardware store",
				"TARGET AUDIENCE:\nHomeowners",
				"BRAND VOICE & TONE:\nfriendly",
				"BRAND COLORS:\n- accent: #00ff00\n- primary: #ff0000",
				"SOCIAL MEDIA PRESENCE:\n- instagram: https://instagram.com/acme",
				"BUSINESS GOALS:\n- Grow sales\n- Open second store",
			},
		},
		"json text": {
			business: &model.Business{
				Name:        "Acme",
				BrandColors: `{"primary":"#112233"}`,
				SocialLinks: []byte(`{"x":"https://x.com/acme"}`),
				Goals:       `["Grow sales"]`,
			},
			expect: []string{
				"BRAND COLORS:\n- primary: #112233",
				"SOCIAL MEDIA PRESENCE:\n- x: https://x.com/acme",
				"BUSINESS GOALS:\n- Grow sales",
			},
		},
		"typed goals": {
			business: &model.Business{
				Name:  "Acme",
				Goals: []string{"Grow sales"},
			},
			expect: []string{"BUSINESS GOALS:\n- Grow sales"},
		},
		"typed non string values": {
			business: &model.Business{
				Name:        "Acme",
				BrandColors: map[string]int{"primary": 255, "accent": 16},
				SocialLinks: map[string]any{"followers": 1200},
				Goals:       []int{1, 2},
			},
			expect: []string{
				"BRAND COLORS:\n- accent: 16\n- primary: 255",
				"SOCIAL MEDIA PRESENCE:\n- followers: 1200",
				"BUSINESS GOALS:\n- 1\n- 2",
			},
		},
		"typed array": {
			business: &model.Business{
				Name:  "Acme",
				Goals: [2]string{"Grow sales", "Hire staff"},
			},
			expect: []string{"BUSINESS GOALS:\n- Grow sales\n- Hire staff"},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			profile := memory.BuildProfile(context.Background(), tc.business)
			for _, s := range tc.expect {
				gt.S(t, profile).Contains(s)
			}
		})
	}
}

func TestBuildProfileMalformedFields(t *testing.T) {
	testCases := map[string]*model.Business{
		"broken json": {
			Name:        "Acme",
			BrandColors: `{"primary":`,
			SocialLinks: "{not json",
			Goals:       "[unterminated",
		},
		"plain text": {
			Name:        "Acme",
			BrandColors: "red and blue",
			SocialLinks: "instagram",
			Goals:       "Grow sales",
		},
		"wrong shape": {
			Name:        "Acme",
			BrandColors: []any{"red"},
			SocialLinks: 42,
			Goals:       map[string]any{"goal": "Grow sales"},
		},
		"wrong shape json": {
			Name:        "Acme",
			BrandColors: `["red"]`,
			SocialLinks: `"instagram"`,
			Goals:       `{"goal":"Grow sales"}`,
		},
		"null json": {
			Name:        "Acme",
			BrandColors: "null",
			SocialLinks: "",
			Goals:       "null",
		},
	}

	for name, business := range testCases {
		t.Run(name, func(t *testing.T) {
			profile := memory.BuildProfile(context.Background(), business)
			gt.S(t, profile).Contains("BRAND COLORS:\nNot specified")
			gt.S(t, profile).Contains("SOCIAL MEDIA PRESENCE:\nNot specified")
			gt.S(t, profile).Contains("BUSINESS GOALS:\nNot specified")
		})
	}
}

func TestBuildProfileInstructions(t *testing.T) {
	profile := memory.BuildProfile(context.Background(), &model.Business{Name: "Acme"})

	gt.S(t, profile).Contains("IMPORTANT INSTRUCTIONS:")
	gt.S(t, profile).Contains(`"I'll [action]"`)
	gt.S(t, profile).Contains(`"I will [action]"`)
	gt.S(t, profile).Contains(`"Task: [action]"`)
}

func TestBuildProfileDeterministic(t *testing.T) {
	business := &model.Business{
		Name:        "Acme",
		BrandColors: map[string]any{"c": "3", "a": "1", "b": "2"},
		SocialLinks: map[string]any{"z": "1", "y": "2"},
	}

	first := memory.BuildProfile(context.Background(), business)
	for range 10 {
		gt.Equal(t, memory.BuildProfile(context.Background(), business), first)
	}
}
