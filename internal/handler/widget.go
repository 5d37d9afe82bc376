package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// WidgetHandler serve o script de embed do chat
type WidgetHandler struct {
	script []byte
}

// NewWidgetHandler monta o script uma vez; widgetURL é o src do iframe
func NewWidgetHandler(widgetURL string) *WidgetHandler {
	return &WidgetHandler{script: []byte(WidgetScript(widgetURL))}
}

// Script serve GET /widget.js
func (h *WidgetHandler) Script(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", h.script)
}

// WidgetScript gera o JS que injeta o iframe fixo no canto inferior direito
func WidgetScript(widgetURL string) string {
	src, _ := json.Marshal(widgetURL)
	return fmt.Sprintf(`(function () {
  var iframe = document.createElement("iframe");
  iframe.src = %s;
  iframe.style.position = "fixed";
  iframe.style.bottom = "20px";
  iframe.style.right = "20px";
  iframe.style.width = "360px";
  iframe.style.height = "520px";
  iframe.style.border = "none";
  iframe.style.zIndex = "999999";
  iframe.style.background = "transparent";
  iframe.setAttribute("allowtransparency", "true");
  document.body.appendChild(iframe);
})();
`, src)
}
