package content

import (
	"bytes"
	"embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/*.md
var promptFS embed.FS

var promptTmpl = template.Must(template.ParseFS(promptFS, "prompt/*.md"))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := promptTmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", goerr.Wrap(err, "failed to execute content prompt template", goerr.V("template", name))
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// instruction wraps the prompt with the template of a known content type. An
// unknown type uses the raw prompt.
func instruction(contentType model.ContentType, prompt string) (string, error) {
	if contentType.Validate() != nil {
		return prompt, nil
	}
	return render(string(contentType)+".md", map[string]any{"Prompt": prompt})
}

func systemMessage(systemPrompt string, contentType model.ContentType) (string, error) {
	return render("system.md", map[string]any{
		"SystemPrompt": systemPrompt,
		"Type":         string(contentType),
	})
}

// fallbackContent is the local content used when the provider is rate limited
func fallbackContent(contentType model.ContentType, prompt string) string {
	return "Fallback " + string(contentType) + ": " + prompt + "\n\n(Generated locally because provider quota was exceeded.)"
}
