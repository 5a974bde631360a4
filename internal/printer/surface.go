package printer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Surface shows a receipt to a person when it cannot be printed directly.
// Render returns where the receipt can be found.
type Surface interface {
	Render(ctx context.Context, job Job) (string, error)
}

var printView = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Receipt - {{.Title}}</title>
<style>
body {
  font-family: 'Courier New', monospace;
  font-size: 12px;
  line-height: 1.2;
  margin: 0;
  padding: 10px;
  width: {{.PaperMM}}mm;
  background: white;
}
pre { margin: 0; white-space: pre-wrap; word-wrap: break-word; }
@media print {
  body { margin: 0; padding: 5px; }
  @page { margin: 0; size: {{.PaperMM}}mm auto; }
}
</style>
</head>
<body>
<pre>{{.Text}}</pre>
<script>
window.onload = function() {
  window.print();
  setTimeout(function() { window.close(); }, 1000);
}
</script>
</body>
</html>
`))

// SpoolSurface writes each receipt as a printable HTML page into a
// directory, for a browser or print daemon to pick up.
type SpoolSurface struct {
	dir string
	now func() time.Time
}

// NewSpoolSurface returns a SpoolSurface writing into dir. The directory is
// created on first use.
func NewSpoolSurface(dir string) *SpoolSurface {
	return &SpoolSurface{dir: dir, now: time.Now}
}

// Render implements Surface. Job text must already be free of control
// sequences.
func (s *SpoolSurface) Render(ctx context.Context, job Job) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := printView.Execute(&buf, struct {
		Title   string
		Text    string
		PaperMM int
	}{
		Title:   job.Title,
		Text:    job.Text,
		PaperMM: job.Width.PaperMM(),
	}); err != nil {
		return "", errors.Wrap(err, "render print view")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create spool dir")
	}
	name := fmt.Sprintf("receipt-%s-%s.html", s.now().Format("20060102-150405"), uuid.New().String()[:8])
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", errors.Wrap(err, "write print view")
	}
	return path, nil
}
