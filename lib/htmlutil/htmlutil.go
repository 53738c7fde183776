package htmlutil

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("fabriq.lib.htmlutil")

// GetText concatenates every text node below node, markup is dropped.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		// text nodes from adjacent elements would otherwise run together
		buffer.WriteByte(' ')
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

type Image struct {
	Src string
	Alt string
}

// Anchor is a hyperlink together with the first image embedded in it.
// Href and Image.Src are raw attribute values, unresolved.
type Anchor struct {
	Href  string
	Text  string
	Image *Image
}

// GetAnchors returns every `a[href]` below sel in document order. Only the
// first image with a non-empty src is kept per anchor.
func GetAnchors(ctx context.Context, sel *goquery.Selection) []Anchor {
	_, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		anchor := Anchor{
			Href: a.AttrOr("href", ""),
		}
		for _, n := range a.Nodes {
			anchor.Text += GetText(n)
		}

		a.Find("img[src]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
			src := strings.TrimSpace(img.AttrOr("src", ""))
			if src == "" {
				return true
			}
			anchor.Image = &Image{
				Src: src,
				Alt: img.AttrOr("alt", ""),
			}
			return false
		})

		anchors = append(anchors, anchor)
	})

	span.AddEvent("anchors", trace.WithAttributes(
		attribute.Int("count", len(anchors)),
	))
	return anchors
}
