// Package portal is a client for the metadata API of the open data portal.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"uzdata-harvester/lib/restyutil"
	"uzdata-harvester/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("lib.portal")

const (
	DefaultBaseURL   = "https://data.egov.uz"
	DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type ClientOptions struct {
	BaseURL string
	// CloudflareBypass routes requests through the cloudflare bypass
	// transport.
	CloudflareBypass bool
	// Output receives request/response dumps, it can be nil.
	Output  restyutil.InstrumentOutput
	Timeout time.Duration
}

type Client struct {
	http *resty.Client
}

func NewClient(opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(opts.BaseURL, "/"))
	client.SetHeader("user-agent", DesktopUserAgent)
	client.SetHeader("accept", "application/json")
	client.SetTimeout(opts.Timeout)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	restyutil.InstrumentClient(client, tracer, opts.Output)

	return &Client{http: client}
}

// SphereListRaw returns the unmodified body of the sphere list endpoint.
func (c *Client) SphereListRaw(ctx context.Context) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Client.SphereListRaw")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("hasAral", "false").
		Get("/apiClient/Main/GetSphereList")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to request sphere list")
		return nil, fmt.Errorf("request sphere list: %w", err)
	}
	if res.IsError() {
		err := fmt.Errorf("request sphere list: unexpected status %s", res.Status())
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status")
		return nil, err
	}

	body := res.Body()
	span.SetAttributes(attribute.Int("bytes", len(body)))
	if !json.Valid(body) {
		err := fmt.Errorf("request sphere list: response is not json")
		span.RecordError(err)
		span.SetStatus(codes.Error, "response is not json")
		return nil, err
	}
	return body, nil
}

// Spheres fetches and decodes the sphere list, the raw body is returned
// alongside so it can be saved as is.
func (c *Client) Spheres(ctx context.Context) ([]Sphere, []byte, error) {
	raw, err := c.SphereListRaw(ctx)
	if err != nil {
		return nil, nil, err
	}
	spheres, err := DecodeSpheres(raw)
	if err != nil {
		return nil, raw, err
	}
	return spheres, raw, nil
}
