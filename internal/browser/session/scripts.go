// internal/browser/session/scripts.go
package session

import (
	"bytes"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/wanderer/api/schemas"
)

// elementIDAttribute stamps listed elements so they can be addressed again
// by an attribute selector after the list has been returned.
const elementIDAttribute = "data-wanderer-id"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// visibleRectJS clips a node's client rect to the viewport and returns null
// when nothing of it can receive a click.
const visibleRectJS = `
function __wandererVisibleRect(node) {
	const rect = node.getBoundingClientRect();
	const vw = window.innerWidth, vh = window.innerHeight;
	const left = Math.max(rect.left, 0), top = Math.max(rect.top, 0);
	const right = Math.min(rect.right, vw), bottom = Math.min(rect.bottom, vh);
	if (right - left < 1 || bottom - top < 1) return null;
	const style = window.getComputedStyle(node);
	if (style.display === 'none' || style.visibility === 'hidden' ||
		style.opacity === '0' || style.pointerEvents === 'none') return null;
	if (node.disabled) return null;
	return {
		vertices: [left, top, right, top, right, bottom, left, bottom],
		width: Math.round(right - left),
		height: Math.round(bottom - top)
	};
}`

// elementsScript lists visible matches of sel as schemas.Element values.
func elementsScript(sel string) string {
	return fmt.Sprintf(`(function(sel, attr) {
	%s
	const out = [];
	let seq = window.__wandererSeq || 0;
	for (const node of document.querySelectorAll(sel)) {
		const geometry = __wandererVisibleRect(node);
		if (!geometry) continue;
		let id = node.getAttribute(attr);
		if (!id) {
			id = String(++seq);
			node.setAttribute(attr, id);
		}
		out.push({
			selector: '[' + attr + '="' + id + '"]',
			tagName: (node.tagName || '').toLowerCase(),
			text: String(node.innerText || node.value || '').trim().slice(0, 80),
			href: typeof node.href === 'string' ? node.href : '',
			geometry: geometry
		});
	}
	window.__wandererSeq = seq;
	return out;
})(%s, %s)`, visibleRectJS, jsString(sel), jsString(elementIDAttribute))
}

// geometryScript re-reads the current geometry of one element.
func geometryScript(sel string) string {
	return fmt.Sprintf(`(function(sel) {
	%s
	const node = document.querySelector(sel);
	return node ? __wandererVisibleRect(node) : null;
})(%s)`, visibleRectJS, jsString(sel))
}

const linksScript = `Array.from(document.querySelectorAll('a[href]'), a => a.href)
	.filter(h => typeof h === 'string' && h.length > 0)`

func scrollToScript(y float64) string {
	return fmt.Sprintf(`window.scrollTo({top: %.0f, left: 0, behavior: 'instant'}); window.scrollY`, y)
}

// hideWebdriverScript runs before any page script on every document.
const hideWebdriverScript = `Object.defineProperty(Navigator.prototype, 'webdriver', {get: () => undefined});`

// jsString encodes s as a JavaScript string literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

// isNullResult reports whether a raw evaluation result carries no value.
func isNullResult(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("undefined"))
}

func decodeElements(raw []byte) ([]schemas.Element, error) {
	if isNullResult(raw) {
		return nil, nil
	}
	var elements []schemas.Element
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, fmt.Errorf("failed to decode element list: %w", err)
	}
	return elements, nil
}

func decodeGeometry(raw []byte) (*schemas.ElementGeometry, error) {
	if isNullResult(raw) {
		return nil, nil
	}
	var geo schemas.ElementGeometry
	if err := json.Unmarshal(raw, &geo); err != nil {
		return nil, fmt.Errorf("failed to decode element geometry: %w", err)
	}
	return &geo, nil
}

func decodeLinks(raw []byte) ([]string, error) {
	if isNullResult(raw) {
		return nil, nil
	}
	var links []string
	if err := json.Unmarshal(raw, &links); err != nil {
		return nil, fmt.Errorf("failed to decode links: %w", err)
	}
	return links, nil
}
