package page

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElement_TextContentAndParents(t *testing.T) {
	label := NewElement("span", "Answer")
	icon := NewElement("i", "", "icon-phone")
	button := NewElement("button", "", "call-btn").Append(icon, label)
	NewElement("div", "", "toolbar").Append(button)

	assert.Equal(t, "Answer", button.TextContent())
	assert.Same(t, button, label.Parent())
	assert.True(t, button.Parent().HasClass("toolbar"))
	assert.False(t, button.HasClass("toolbar"))
}

func TestDocument_ClickPhases(t *testing.T) {
	d := NewDocument(&url.URL{Scheme: "https", Host: "remowork.biz"}, "")
	target := NewElement("button", "OK")

	var order []string
	d.AddClickListener(func(*ClickEvent) { order = append(order, "bubble") }, false)
	d.AddClickListener(func(ev *ClickEvent) {
		assert.Same(t, target, ev.Target)
		order = append(order, "capture")
	}, true)

	d.Click(target)
	assert.Equal(t, []string{"capture", "bubble"}, order)
}

func TestDocument_StopPropagationInCapture(t *testing.T) {
	d := NewDocument(&url.URL{Scheme: "https", Host: "remowork.biz"}, "")

	var bubbled bool
	d.AddClickListener(func(*ClickEvent) { bubbled = true }, false)
	remove := d.AddClickListener(func(ev *ClickEvent) { ev.StopPropagation() }, true)

	d.Click(NewElement("button", ""))
	assert.False(t, bubbled)

	remove()
	d.Click(NewElement("button", ""))
	assert.True(t, bubbled)
}
