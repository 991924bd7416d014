package main

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/milan604/buffer-go/pkg/apperr"
	"github.com/milan604/buffer-go/pkg/buffer"
	"github.com/milan604/buffer-go/pkg/observability"
	"github.com/milan604/buffer-go/pkg/response"
	middleware "github.com/milan604/buffer-go/pkg/server/middleware"
	"github.com/milan604/buffer-go/pkg/tokenstore"
	"github.com/milan604/buffer-go/pkg/tokenstore/cookiestore"
	"github.com/milan604/buffer-go/pkg/validator"
	"github.com/milan604/buffer-go/pkg/version"
)

const stateKey = "oauth_state"

// app serves the OAuth login flow and proxies API calls for the signed-in user.
// Each request gets its own buffer.Session whose token lives in the user's
// cookie and, when configured, in a shared backend store.
type app struct {
	oauth      buffer.OAuthConfig
	cookies    sessions.Store
	backend    buffer.TokenStore
	storeName  string
	clientOpts []buffer.ClientOption
	obs        observability.ObservabilityIface
}

type proxyURI struct {
	Path string `uri:"path" binding:"required,max=512"`
}

type callbackQuery struct {
	Code  string `form:"code" binding:"required"`
	State string `form:"state" binding:"required,uuid"`
}

func (a *app) routes(r gin.IRouter) {
	r.GET("/healthz", a.healthz)
	r.GET("/version", a.version)
	r.GET("/login", a.login)
	r.GET("/callback", a.traced("bufferd.callback", a.callback))
	r.POST("/logout", a.logout)
	r.GET("/endpoints", a.endpoints)
	r.GET("/api/*path", a.traced("bufferd.proxy", a.proxy))
	r.POST("/api/*path", a.traced("bufferd.proxy", a.proxy))
}

func (a *app) traced(name string, h gin.HandlerFunc) gin.HandlerFunc {
	if a.obs == nil {
		return h
	}
	return observability.TraceHandler(a.obs, name, h)
}

// client builds a Buffer client for the current request. A callback writes the
// exchanged token to the cookie and the shared backend. Other requests read the
// backend only when the cookie shows this browser signed in, and then prefer it
// since it holds the account's latest token.
func (a *app) client(c *gin.Context, callback bool) *buffer.Client {
	cookie := cookiestore.New(a.cookies, c.Request, c.Writer)
	store := tokenstore.Chain{cookie}
	switch {
	case a.backend == nil:
	case callback:
		store = tokenstore.Chain{cookie, a.backend}
	case cookie.SignedIn():
		store = tokenstore.Chain{a.backend, cookie}
	}
	return buffer.NewClient(buffer.NewSession(a.oauth, store), a.clientOpts...)
}

func (a *app) healthz(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

func (a *app) version(c *gin.Context) {
	response.Success(c, version.Info())
}

func (a *app) login(c *gin.Context) {
	sess, _ := a.cookies.Get(c.Request, cookiestore.SessionName)
	state := uuid.NewString()
	sess.Values[stateKey] = state
	if err := sess.Save(c.Request, c.Writer); err != nil {
		_ = c.Error(apperr.New(apperr.ErrorCodeInternal).Wrap(err))
		return
	}

	login, err := url.Parse(buffer.NewSession(a.oauth, nil).LoginURL())
	if err != nil {
		_ = c.Error(apperr.New(apperr.ErrorCodeInternal).Wrap(err))
		return
	}
	q := login.Query()
	q.Set("state", state)
	login.RawQuery = q.Encode()
	c.Redirect(http.StatusFound, login.String())
}

func (a *app) callback(c *gin.Context) {
	q, appErr := validator.BindQuery[callbackQuery](middleware.GetValidator(c), c)
	if appErr != nil {
		response.JSONError(c, appErr)
		return
	}

	sess, _ := a.cookies.Get(c.Request, cookiestore.SessionName)
	want, _ := sess.Values[stateKey].(string)
	if want == "" || want != q.State {
		response.JSONError(c, apperr.New(apperr.ErrorCodeForbidden).WithMessage("OAuth state mismatch"))
		return
	}
	delete(sess.Values, stateKey)

	ctx := c.Request.Context()
	observability.AddSpanAttributes(ctx, observability.AttrTokenStore.String(a.storeName))

	client := a.client(c, true)
	client.Session().SetAuthorizationCode(q.Code)
	if err := client.ExchangeCode(ctx); err != nil {
		middleware.GetLogger(c).WarnFCtx(ctx, "callback: %v", err)
		// the state is spent even though no token was stored
		if err := sess.Save(c.Request, c.Writer); err != nil {
			middleware.GetLogger(c).WarnFCtx(ctx, "callback: save session: %v", err)
		}
		response.Error(c, toAppError(err))
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (a *app) logout(c *gin.Context) {
	if err := cookiestore.New(a.cookies, c.Request, c.Writer).Clear(); err != nil {
		_ = c.Error(apperr.New(apperr.ErrorCodeInternal).Wrap(err))
		return
	}
	c.Status(http.StatusNoContent)
}

type endpointView struct {
	Pattern     string `json:"pattern"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

func (a *app) endpoints(c *gin.Context) {
	eps := buffer.DefaultRegistry().Endpoints()
	out := make([]endpointView, 0, len(eps))
	for _, ep := range eps {
		out = append(out, endpointView{Pattern: ep.Pattern, Method: ep.Method, Description: ep.Description})
	}
	response.Success(c, out)
}

// proxy forwards /api/<path> to the Buffer endpoint <path>. Query and form
// values become call parameters; the Buffer method comes from the endpoint
// table, not from the incoming request.
func (a *app) proxy(c *gin.Context) {
	uri, appErr := validator.BindURI[proxyURI](middleware.GetValidator(c), c)
	if appErr != nil {
		response.JSONError(c, appErr)
		return
	}

	ctx := c.Request.Context()
	client := a.client(c, false)

	ready, err := client.Authenticate(ctx)
	if err != nil {
		response.Error(c, toAppError(err))
		return
	}
	if !ready {
		response.JSONError(c, apperr.New(apperr.ErrorCodeUnauthorized).WithMessage("sign in at /login first"))
		return
	}

	if err := c.Request.ParseForm(); err != nil {
		response.JSONError(c, apperr.New(apperr.ErrorCodeInvalidRequest).Wrap(err))
		return
	}
	params := c.Request.Form
	params.Del(buffer.AccessTokenParam)

	resp, err := client.Call(ctx, uri.Path, params)
	if err != nil {
		response.Error(c, toAppError(err))
		return
	}
	response.JSONSuccess(c, http.StatusOK, resp.Data, map[string]any{"endpoint": resp.Endpoint.Pattern, "method": resp.Endpoint.Method})
}

// toAppError maps client failures onto the error envelope: Buffer errors keep
// their status, a token that could not be saved is internal and anything else
// means Buffer could not be reached.
func toAppError(err error) *apperr.AppError {
	if ae, ok := buffer.AsAPIError(err); ok {
		return ae.AppError()
	}
	if errors.Is(err, buffer.ErrPersistToken) {
		return apperr.New(apperr.ErrorCodeInternal).Wrap(err)
	}
	return apperr.New(apperr.ErrorCodeUpstream).Wrap(err)
}
