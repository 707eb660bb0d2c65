package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

func (e *Extractor) extractDocument(ctx context.Context, docPath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".txt", ".md", ".markdown":
		b, err := os.ReadFile(docPath)
		if err != nil {
			return "", fmt.Errorf("read document: %w", err)
		}
		return string(b), nil
	}

	// Raw HTML uploads get no media root, so their local <img> sources are
	// never read.
	htmlPath := docPath
	mediaRoot := ""
	if ext != ".html" && ext != ".htm" {
		if e.Media == nil {
			return "", fmt.Errorf("media tools unavailable")
		}
		tmpDir, err := os.MkdirTemp(e.TempDir, "ab_doc_*")
		if err != nil {
			return "", fmt.Errorf("temp dir: %w", err)
		}
		defer os.RemoveAll(tmpDir)

		htmlPath, mediaRoot, err = e.Media.ConvertToHTML(ctx, docPath, tmpDir)
		if err != nil {
			return "", fmt.Errorf("convert document: %w", err)
		}
	}

	raw, err := os.ReadFile(htmlPath)
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	annotated, err := e.annotateImages(ctx, raw, mediaRoot)
	if err != nil {
		return "", err
	}
	return htmlToMarkdown(annotated)
}

// annotateImages inserts a "Image Description:" paragraph after every <img>
// stored under mediaRoot that the captioner finds relevant. Images outside
// mediaRoot, or that cannot be read or described, are left alone.
func (e *Extractor) annotateImages(ctx context.Context, raw []byte, mediaRoot string) (string, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var imgs []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			imgs = append(imgs, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	described := 0
	for _, img := range imgs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if img.Parent == nil {
			continue
		}
		rawSrc := attr(img, "src")
		src, ok := confinedImagePath(rawSrc, mediaRoot)
		if !ok {
			if rawSrc != "" && mediaRoot != "" {
				e.Log.Debug("embedded image outside media dir skipped", "src", rawSrc)
			}
			continue
		}
		data, err := os.ReadFile(src)
		if err != nil {
			e.Log.Warn("embedded image unreadable", "src", src, "error", err)
			continue
		}
		desc, err := e.describe(ctx, data, imageMIME(src))
		if err != nil {
			e.Log.Warn("embedded image description failed", "src", src, "error", err)
			continue
		}
		if desc == "" {
			continue
		}
		p := &html.Node{Type: html.ElementNode, Data: "p"}
		p.AppendChild(&html.Node{Type: html.TextNode, Data: "Image Description: " + desc})
		img.Parent.InsertBefore(p, img.NextSibling)
		described++
	}
	if len(imgs) > 0 {
		e.Log.Debug("embedded images annotated", "found", len(imgs), "described", described)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

func htmlToMarkdown(s string) (string, error) {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	out, err := converter.ConvertString(s)
	if err != nil {
		return "", fmt.Errorf("html to markdown: %w", err)
	}
	out = excessiveLinesRe.ReplaceAllString(out, "\n\n\n")
	return strings.TrimSpace(out), nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// confinedImagePath resolves src to a file under mediaRoot. Remote, inline
// and file:// sources are refused, as is anything that resolves outside
// mediaRoot, including through symlinks. An empty mediaRoot refuses all.
func confinedImagePath(src, mediaRoot string) (string, bool) {
	if src == "" || mediaRoot == "" {
		return "", false
	}
	if strings.Contains(src, "://") || strings.HasPrefix(src, "//") || strings.HasPrefix(strings.ToLower(src), "data:") {
		return "", false
	}
	root, err := filepath.EvalSymlinks(mediaRoot)
	if err != nil {
		return "", false
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return "", false
	}

	p := filepath.FromSlash(src)
	if !filepath.IsAbs(p) {
		// Relative sources resolve against the converted HTML's directory,
		// which is the parent of mediaRoot.
		p = filepath.Join(filepath.Dir(mediaRoot), p)
	}
	p, err = filepath.EvalSymlinks(p)
	if err != nil {
		return "", false
	}
	p, err = filepath.Abs(p)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", false
	}
	return p, true
}
