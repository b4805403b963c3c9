package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OAuthLinker 提供后端 OAuth 入口地址
type OAuthLinker interface {
	OAuthURL(provider string) (string, bool)
}

// oauthRedirect godoc
// @Summary 第三方登录
// @Description 重定向到后端的 OAuth 入口（google / gmail）
// @Tags Auth
// @Param provider path string true "登录方式"
// @Success 302
// @Failure 404 {object} Response
// @Router /api/v1/auth/{provider} [get]
func (h *Handler) oauthRedirect(c *gin.Context) {
	url, ok := h.oauth.OAuthURL(c.Param("provider"))
	if !ok {
		NotFound(c, MsgUnknownProvider)
		return
	}
	c.Redirect(http.StatusFound, url)
}
