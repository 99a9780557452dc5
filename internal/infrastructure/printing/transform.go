package printing

import (
	"encoding/json"
	"strings"
)

// FallbackSelectors are tried in order when the requested selector matches nothing
var FallbackSelectors = []string{
	"#print-area",
	".print-area",
	"[data-print]",
	"main",
	"article",
	"body > *:first-child",
}

// transformConfig is serialized into the page as the transform's argument
type transformConfig struct {
	Selectors        []string `json:"selectors"`
	WidthMM          float64  `json:"widthMM"`
	HeightMM         float64  `json:"heightMM"`
	Rotate180        bool     `json:"rotate180"`
	HideFormControls bool     `json:"hideFormControls"`
}

// transformResult is what the transform script returns
type transformResult struct {
	OK      bool     `json:"ok"`
	Reason  string   `json:"reason"`
	Matched string   `json:"matched"`
	Tried   []string `json:"tried"`
}

// candidateSelectors puts the requested selector first and drops duplicates
func candidateSelectors(selector string) []string {
	out := make([]string, 0, len(FallbackSelectors)+1)
	seen := make(map[string]bool, len(FallbackSelectors)+1)
	for _, s := range append([]string{strings.TrimSpace(selector)}, FallbackSelectors...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// buildTransformScript returns the expression that isolates the print target.
// The target keeps its own layout; everything else on the page is hidden,
// every ancestor is forced visible with zero spacing, and the target is pinned
// top-center on a page of exactly the paper size.
func buildTransformScript(req *RenderRequest, hideFormControls bool) (string, error) {
	cfg := transformConfig{
		Selectors:        candidateSelectors(req.Selector),
		WidthMM:          req.PaperSize.Width,
		HeightMM:         req.PaperSize.Height,
		Rotate180:        req.Rotate180,
		HideFormControls: hideFormControls,
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return transformScript + "(" + string(data) + ")", nil
}

const transformScript = `(function (cfg) {
  var target = null, matched = "";
  for (var i = 0; i < cfg.selectors.length; i++) {
    try {
      target = document.querySelector(cfg.selectors[i]);
    } catch (e) {
      target = null;
    }
    if (target) { matched = cfg.selectors[i]; break; }
  }
  if (!target) {
    return { ok: false, reason: "not-found", tried: cfg.selectors };
  }

  var w = cfg.widthMM + "mm", h = cfg.heightMM + "mm";
  var css = "@page { size: " + w + " " + h + "; margin: 0; }" +
    " html, body { margin: 0 !important; padding: 0 !important; width: " + w + " !important;" +
    " height: " + h + " !important; overflow: hidden !important; }" +
    " * { -webkit-print-color-adjust: exact !important; print-color-adjust: exact !important; }";
  if (cfg.hideFormControls) {
    css += " input, select, textarea, button { visibility: hidden !important; }";
  }
  var style = document.createElement("style");
  style.setAttribute("data-printbridge", "");
  style.textContent = css;
  (document.head || document.documentElement).appendChild(style);

  function force(el, prop, value) { el.style.setProperty(prop, value, "important"); }

  var node = target;
  while (node && node.parentElement && node !== document.body) {
    var parent = node.parentElement;
    for (var c = parent.firstElementChild; c; c = c.nextElementSibling) {
      if (c !== node && c.tagName !== "SCRIPT" && c.tagName !== "STYLE" && c.tagName !== "LINK") {
        force(c, "display", "none");
      }
    }
    force(parent, "display", "block");
    force(parent, "visibility", "visible");
    force(parent, "margin", "0");
    force(parent, "padding", "0");
    force(parent, "border", "0");
    force(parent, "transform", "none");
    force(parent, "overflow", "visible");
    node = parent;
  }

  var transform = "translateX(-50%)";
  if (cfg.rotate180) { transform += " rotate(180deg)"; }
  force(target, "position", "absolute");
  force(target, "top", "0");
  force(target, "left", "50%");
  force(target, "margin", "0");
  force(target, "visibility", "visible");
  force(target, "transform-origin", "center center");
  force(target, "transform", transform);
  window.scrollTo(0, 0);

  return { ok: true, matched: matched };
})`
