package server

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/conneroisu/harness/internal/registry"
)

// PendingGlobal is the window property the page keeps equal to the number of
// events awaiting a reply plus the fixture's scheduled tasks. Browser
// environments treat 0 as stable.
const PendingGlobal = "__harnessPending"

// RootID is the id of the element the fixture markup is mirrored into.
const RootID = "harness-root"

const pageStyle = `body{font-family:system-ui,sans-serif;margin:0;padding:20px;background:#f5f5f5}
main{max-width:960px;margin:0 auto;background:#fff;padding:20px;border-radius:8px}
.ui-slider-vertical{writing-mode:vertical-lr}
.ui-card{border:1px solid #ddd;border-radius:6px;padding:12px;margin:12px 0}
.ui-button-toggle-checked button{background:#007acc;color:#fff}
.ui-delayed.done button{background:#2e7d32;color:#fff}`

// clientScript patches render messages into the root in place, keeping
// element identity and focus, and forwards bound DOM events. Checkbox clicks are cancelled in the page and replayed on the
// server with the pre-click state, so the server model is the only one that
// toggles.
const clientScript = `(function () {
  var root = document.getElementById("` + RootID + `");
  var session = document.body.dataset.session;
  var inflight = 1, serverPending = 0, seq = 0;
  function update() { window.` + PendingGlobal + ` = inflight + serverPending; }
  update();
  function pathOf(el) {
    var path = [];
    while (el && el !== root) {
      var parent = el.parentElement;
      if (!parent) { return null; }
      path.unshift(Array.prototype.indexOf.call(parent.children, el));
      el = parent;
    }
    return el === root ? path : null;
  }
  function syncAttrs(from, to) {
    for (var i = from.attributes.length - 1; i >= 0; i--) {
      var name = from.attributes[i].name;
      if (!to.hasAttribute(name)) { from.removeAttribute(name); }
    }
    for (var j = 0; j < to.attributes.length; j++) {
      var a = to.attributes[j];
      if (from.getAttribute(a.name) !== a.value) { from.setAttribute(a.name, a.value); }
    }
    if (from.tagName === "INPUT") {
      from.checked = from.hasAttribute("checked");
      from.indeterminate = from.hasAttribute("indeterminate");
      if (from.hasAttribute("value") && from.value !== from.getAttribute("value")) { from.value = from.getAttribute("value"); }
    }
  }
  function same(a, b) {
    return a.nodeType === b.nodeType && (a.nodeType !== 1 || a.tagName === b.tagName);
  }
  function morph(from, to) {
    var i = 0;
    for (; i < to.childNodes.length; i++) {
      var next = to.childNodes[i], cur = from.childNodes[i];
      if (!cur) {
        from.appendChild(next.cloneNode(true));
      } else if (!same(cur, next)) {
        from.replaceChild(next.cloneNode(true), cur);
      } else if (cur.nodeType === 1) {
        syncAttrs(cur, next);
        morph(cur, next);
      } else if (cur.nodeValue !== next.nodeValue) {
        cur.nodeValue = next.nodeValue;
      }
    }
    while (from.childNodes.length > i) { from.removeChild(from.lastChild); }
  }
  function bound(el, type) {
    for (; el && el !== root; el = el.parentElement) {
      if (el.hasAttribute("data-ui-on-" + type)) { return true; }
    }
    return false;
  }
  var proto = location.protocol === "https:" ? "wss:" : "ws:";
  var ws = new WebSocket(proto + "//" + location.host + "/ws?session=" + encodeURIComponent(session));
  ws.onmessage = function (e) {
    var msg = JSON.parse(e.data);
    if (msg.type === "render") {
      var next = document.createElement("template");
      next.innerHTML = msg.html;
      morph(root, next.content);
    } else if (msg.type === "error") {
      console.error("harness:", msg.error);
    } else {
      return;
    }
    serverPending = msg.pending;
    if (msg.ack > 0 || msg.initial) { inflight = Math.max(0, inflight - 1); }
    update();
  };
  function forward(ev) {
    var el = ev.target;
    if (!(el instanceof Element) || !root.contains(el) || !bound(el, ev.type)) { return; }
    if (ws.readyState !== WebSocket.OPEN) { return; }
    var msg = { type: "event", event: ev.type, path: pathOf(el), seq: ++seq };
    if ("value" in el) { msg.value = String(el.value); }
    if (el.type === "checkbox") {
      msg.checked = ev.type === "click" ? !el.checked : el.checked;
      if (ev.type === "click") { ev.preventDefault(); }
    }
    if (ev.key) { msg.key = ev.key; }
    if (ev.detail && typeof ev.detail === "object") { msg.detail = ev.detail; }
    inflight++;
    update();
    ws.send(JSON.stringify(msg));
  }
  ["click", "change", "input", "keydown", "keyup", "focus", "blur", "mouseenter", "mouseleave"].forEach(function (t) {
    document.addEventListener(t, forward, true);
  });
})();`

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title><style>%s</style></head>`,
			templ.EscapeString(title), pageStyle); err != nil {
			return err
		}
		return body.Render(ctx, w)
	})
}

// indexPage lists the fixtures with links to open a session.
func indexPage(fixtures []*registry.FixtureInfo) templ.Component {
	return layout("harness fixtures", templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<body><main><h1>Fixtures</h1><ul class="fixtures">`); err != nil {
			return err
		}
		for _, f := range fixtures {
			href := templ.URL("/fixtures/" + f.Name)
			if _, err := fmt.Fprintf(w, `<li><a href="%s">%s</a> <span class="description">%s</span></li>`,
				templ.EscapeString(string(href)), templ.EscapeString(f.Name), templ.EscapeString(f.Description)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul></main></body></html>`)
		return err
	}))
}

// fixturePage is the shell a session's markup is mirrored into.
func fixturePage(s *Session, markup string) templ.Component {
	return layout(s.Fixture, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		// markup is the fixture's own render output and is not escaped.
		_, err := fmt.Fprintf(w, `<body data-session="%s" data-fixture="%s"><main><h1>%s</h1><div id="%s">%s</div></main><script>%s</script></body></html>`,
			templ.EscapeString(s.ID), templ.EscapeString(s.Fixture), templ.EscapeString(s.Fixture),
			RootID, markup, clientScript)
		return err
	}))
}
