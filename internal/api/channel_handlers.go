package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/remowork/soundswap/internal/channel"
	"github.com/remowork/soundswap/internal/domain"
)

func (s *Server) registerChannelRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSoundConfig",
		Method:      http.MethodGet,
		Path:        "/api/v1/sounds/config",
		Summary:     "Get resolved sound configuration",
		Description: "Returns the configuration pages apply, with the settings revision it reflects",
		Tags:        []string{"Channel"},
	}, s.handleGetConfig)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSoundBootstrap",
		Method:      http.MethodGet,
		Path:        "/api/v1/sounds/bootstrap",
		Summary:     "Get bootstrap node",
		Description: "Returns the hidden HTML node carrying the current configuration",
		Tags:        []string{"Channel"},
	}, s.handleGetBootstrap)

	huma.Register(s.api, huma.Operation{
		OperationID: "injectSoundBootstrap",
		Method:      http.MethodPost,
		Path:        "/api/v1/sounds/inject",
		Summary:     "Inject bootstrap node",
		Description: "Returns the posted HTML document with the bootstrap node placed ahead of its scripts",
		Tags:        []string{"Channel"},
	}, s.handleInjectBootstrap)

	if s.services.Stream != nil {
		s.router.Get("/api/v1/sounds/stream", s.services.Stream.ServeHTTP)
	}
}

// ConfigOutput is the resolved configuration.
type ConfigOutput struct {
	Revision string `header:"X-Settings-Revision"`
	Body     struct {
		Revision uint64                     `json:"revision" doc:"Settings revision the configuration reflects"`
		Config   domain.ResolvedSoundConfig `json:"config" doc:"Resolved sound configuration"`
	}
}

// HTMLOutput is an HTML document or fragment.
type HTMLOutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Revision     string `header:"X-Settings-Revision"`
	Body         []byte
}

// InjectInput carries the page document to inject into.
type InjectInput struct {
	RawBody []byte
}

func (s *Server) handleGetConfig(ctx context.Context, _ *struct{}) (*ConfigOutput, error) {
	rev, cfg, err := s.services.Sound.ResolvedConfig(ctx)
	if err != nil {
		return nil, s.fail(err)
	}

	out := &ConfigOutput{Revision: strconv.FormatUint(rev, 10)}
	out.Body.Revision = rev
	out.Body.Config = cfg
	return out, nil
}

func (s *Server) handleGetBootstrap(ctx context.Context, _ *struct{}) (*HTMLOutput, error) {
	rev, cfg, err := s.services.Sound.ResolvedConfig(ctx)
	if err != nil {
		return nil, s.fail(err)
	}

	fragment, err := channel.RenderBootstrap(cfg)
	if err != nil {
		return nil, s.fail(err)
	}
	return htmlOutput(rev, fragment), nil
}

func (s *Server) handleInjectBootstrap(ctx context.Context, input *InjectInput) (*HTMLOutput, error) {
	if len(input.RawBody) == 0 {
		return nil, huma.Error400BadRequest("document is required")
	}

	rev, cfg, err := s.services.Sound.ResolvedConfig(ctx)
	if err != nil {
		return nil, s.fail(err)
	}

	doc, err := channel.InjectBootstrap(string(input.RawBody), cfg)
	if err != nil {
		return nil, huma.Error400BadRequest("document could not be parsed", err)
	}
	return htmlOutput(rev, doc), nil
}

func htmlOutput(rev uint64, doc string) *HTMLOutput {
	return &HTMLOutput{
		ContentType:  "text/html; charset=utf-8",
		CacheControl: CacheNoStore,
		Revision:     strconv.FormatUint(rev, 10),
		Body:         []byte(doc),
	}
}
