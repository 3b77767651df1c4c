// Package files is the file/content collaborator boundary: it turns
// uploaded files into a textual context block for the prompt. Extraction is
// best-effort; a broken file becomes an inline note, never an abort.
package files

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"chat-relay/domain"
)

// maxInlineBytes caps how much of a text file is inlined into the prompt.
const maxInlineBytes = 8 << 10

type Processor struct {
	log *slog.Logger
}

func NewProcessor(log *slog.Logger) *Processor {
	return &Processor{log: log}
}

// ProcessFiles concatenates per-file context blocks. Text-like payloads are
// inlined (bounded); binary payloads are summarized by name, type and size.
func (p *Processor) ProcessFiles(refs []domain.FileRef) string {
	if len(refs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Attached files:\n")
	for _, ref := range refs {
		b.WriteString(p.describe(ref))
		b.WriteString("\n")
	}
	return b.String()
}

func (p *Processor) describe(ref domain.FileRef) string {
	if len(ref.Data) == 0 {
		return fmt.Sprintf("- %s: [error: empty file]", ref.Name)
	}

	mime := mimetype.Detect(ref.Data)
	if isTextLike(mime) {
		content := ref.Data
		truncated := false
		if len(content) > maxInlineBytes {
			content = content[:maxInlineBytes]
			truncated = true
		}
		text := strings.ToValidUTF8(string(content), "")
		if truncated {
			return fmt.Sprintf("- %s (%s):\n%s\n[truncated]", ref.Name, mime.String(), text)
		}
		return fmt.Sprintf("- %s (%s):\n%s", ref.Name, mime.String(), text)
	}

	p.log.Debug("Skipping binary upload content", "name", ref.Name, "mime", mime.String())
	return fmt.Sprintf("- %s (%s, %d bytes): [binary content not extracted]",
		ref.Name, mime.String(), len(ref.Data))
}

func isTextLike(mime *mimetype.MIME) bool {
	for m := mime; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "text/") {
			return true
		}
	}
	return strings.HasSuffix(mime.String(), "json") || strings.HasSuffix(mime.String(), "xml")
}
