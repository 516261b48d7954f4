package highlight

import (
	"testing"

	"github.com/hazyhaar/purgedom/cleaner/dom"
	"github.com/hazyhaar/purgedom/cleaner/htmldom"
)

func twoParagraphs(t *testing.T) (dom.Element, dom.Element) {
	t.Helper()
	doc := htmldom.MustParse(`<html><body><p id="a">a</p><p id="b">b</p></body></html>`)
	return doc.ElementByID("a"), doc.ElementByID("b")
}

func TestSet_MovesHighlight(t *testing.T) {
	a, b := twoParagraphs(t)
	var tr Tracker

	tr.Set(a, dom.CleanHighlightClass)
	tr.Set(b, dom.CleanHighlightClass)

	if a.HasClass(dom.CleanHighlightClass) {
		t.Error("previous element still highlighted")
	}
	if !b.HasClass(dom.CleanHighlightClass) {
		t.Error("new element not highlighted")
	}
	if cur, _ := tr.Current(); !cur.Same(b) {
		t.Error("tracker does not point at the new element")
	}
}

func TestSet_SwitchClassOnSameElement(t *testing.T) {
	a, _ := twoParagraphs(t)
	var tr Tracker

	tr.Set(a, dom.CleanHighlightClass)
	tr.Set(a, dom.RestoreHighlightClass)

	if a.HasClass(dom.CleanHighlightClass) {
		t.Error("clean class left behind")
	}
	if !a.HasClass(dom.RestoreHighlightClass) {
		t.Error("restore class missing")
	}
}

func TestSet_Idempotent(t *testing.T) {
	a, _ := twoParagraphs(t)
	var tr Tracker

	tr.Set(a, dom.CleanHighlightClass)
	tr.Set(a, dom.CleanHighlightClass)

	if v, _ := a.Attr("class"); v != dom.CleanHighlightClass {
		t.Errorf("class = %q, want single highlight class", v)
	}
}

func TestClear(t *testing.T) {
	a, _ := twoParagraphs(t)
	var tr Tracker

	tr.Set(a, dom.RestoreHighlightClass)
	tr.Clear()

	if a.HasClass(dom.RestoreHighlightClass) {
		t.Error("highlight not removed")
	}
	if cur, _ := tr.Current(); cur != nil {
		t.Error("tracker still holds a reference")
	}
	tr.Clear() // no-op
}

func TestRelease_KeepsClasses(t *testing.T) {
	a, b := twoParagraphs(t)
	var tr Tracker

	tr.Set(a, dom.CleanHighlightClass)
	tr.Release(b)
	if cur, _ := tr.Current(); cur == nil {
		t.Fatal("Release of another element dropped the reference")
	}

	tr.Release(a)
	if cur, _ := tr.Current(); cur != nil {
		t.Error("Release did not drop the reference")
	}
	if !a.HasClass(dom.CleanHighlightClass) {
		t.Error("Release must not touch classes")
	}
}
