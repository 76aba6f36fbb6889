package page

import (
	"encoding/json"
	"fmt"
)

// toggleBinding : fonction exposée via Runtime.addBinding, appelée au clic.
const toggleBinding = "__captionsyncToggle__"

// snapshotScript retourne l'état utile au localisateur du lecteur.
const snapshotScript = `(() => {
  const pick = (v) => (v === undefined ? null : v);
  let configArgs = "";
  try {
    const yp = window.ytplayer;
    const pr = yp && yp.config && yp.config.args && yp.config.args.player_response;
    if (typeof pr === "string") configArgs = pr;
  } catch (e) {}
  const scripts = [];
  for (const s of document.querySelectorAll("script")) {
    const t = s.textContent;
    if (t && t.includes("ytInitialPlayerResponse")) scripts.push(t);
  }
  return {
    url: location.href,
    hasVideo: !!document.querySelector("video"),
    globals: {
      ytInitialPlayerResponse: pick(window.ytInitialPlayerResponse),
      __PLAYER_RESPONSE__: pick(window.__PLAYER_RESPONSE__)
    },
    configArgs: configArgs,
    scripts: scripts
  };
})()`

// currentTimeScript : null si la vidéo ou la zone de sous-titres a disparu.
var currentTimeScript = fmt.Sprintf(`(() => {
  const v = document.querySelector("video");
  const b = document.getElementById(%q);
  if (!v || !b || !document.body.contains(v) || !document.body.contains(b)) return null;
  return v.currentTime;
})()`, OverlayID)

var nativeCaptionScript = fmt.Sprintf(`(() => {
  const s = document.querySelector(%q);
  return s ? (s.innerText || "") : "";
})()`, NativeCaptionSelector)

func setTextScript(text string) string {
	return fmt.Sprintf(`((t) => {
  const b = document.getElementById(%q);
  if (!b) return false;
  b.innerText = t;
  return true;
})(%s)`, OverlayID, jsString(text))
}

func ensureOverlayScript(visible bool) string {
	return fmt.Sprintf(`((visible) => {
  let box = document.getElementById(%q);
  if (box) return true;
  box = document.createElement("div");
  box.id = %q;
  Object.assign(box.style, {
    position: "fixed",
    left: "50%%",
    bottom: "12%%",
    transform: "translateX(-50%%)",
    maxWidth: "80%%",
    padding: "6px 14px",
    background: "rgba(0, 0, 0, 0.75)",
    color: "#fff",
    fontSize: "22px",
    lineHeight: "1.35",
    textAlign: "center",
    whiteSpace: "pre-line",
    borderRadius: "4px",
    pointerEvents: "none",
    zIndex: "9999998"
  });
  if (!visible) box.style.display = "none";
  document.body.appendChild(box);
  return true;
})(%t)`, OverlayID, OverlayID, visible)
}

func overlayVisibleScript(visible bool) string {
	return fmt.Sprintf(`((visible) => {
  const box = document.getElementById(%q);
  if (box) box.style.display = visible ? "block" : "none";
  return true;
})(%t)`, OverlayID, visible)
}

func ensureToggleScript(enabled bool) string {
	return fmt.Sprintf(`((label, color) => {
  const old = document.getElementById(%q);
  if (old) old.remove();
  const button = document.createElement("button");
  button.id = %q;
  button.textContent = label;
  Object.assign(button.style, {
    position: "fixed",
    bottom: "20px",
    right: "20px",
    padding: "8px 12px",
    backgroundColor: color,
    color: "#000",
    border: "none",
    borderRadius: "5px",
    cursor: "pointer",
    fontWeight: "bold",
    zIndex: "9999999",
    boxShadow: "0 2px 5px rgba(0,0,0,0.3)",
    fontSize: "14px",
    transition: "background-color 0.3s, transform 0.15s"
  });
  button.addEventListener("mouseover", () => { button.style.transform = "scale(1.05)"; });
  button.addEventListener("mouseout", () => { button.style.transform = "scale(1)"; });
  button.addEventListener("click", () => {
    if (typeof window.%s === "function") window.%s("click");
  });
  document.body.appendChild(button);
  return true;
})(%s, %s)`, ToggleID, ToggleID, toggleBinding, toggleBinding, jsString(ToggleLabel(enabled)), jsString(ToggleColor(enabled)))
}

var removeToggleScript = fmt.Sprintf(`(() => {
  const b = document.getElementById(%q);
  if (b) b.remove();
  return true;
})()`, ToggleID)

// jsString encode s en littéral JS (JSON est un sous-ensemble valide).
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
