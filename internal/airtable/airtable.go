// Package airtable implements records.Store on top of the Airtable REST API.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/greatwhitesecurity/opshub/internal/phone"
	"github.com/greatwhitesecurity/opshub/internal/records"
	"github.com/greatwhitesecurity/opshub/internal/upstream"
)

const apiURL = "https://api.airtable.com/v0"

// Field names read and written by this client.
const (
	FieldEntityName     = "Client Name"
	FieldStatus         = "Status"
	FieldResponseLog    = "Tech Availability Responses"
	FieldAvailableTechs = "Available Techs"
	FieldResponderName  = "Name"
	FieldResponderPhone = "Phone"
)

// Config identifies the base and tables.
type Config struct {
	APIKey         string
	BaseID         string
	EntityTable    string
	ResponderTable string
	BaseURL        string
	Timeout        time.Duration
}

// Client is a records.Store backed by Airtable.
type Client struct {
	cfg    Config
	client *upstream.Client
}

// New creates an Airtable client.
func New(cfg Config, opts ...upstream.Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = apiURL
	}

	return &Client{
		cfg:    cfg,
		client: upstream.NewClient("airtable", cfg.Timeout, opts...),
	}
}

type record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

type recordList struct {
	Records []record `json:"records"`
	Offset  string   `json:"offset"`
}

func (c *Client) GetEntity(ctx context.Context, id string) (*records.Entity, error) {
	rec, err := c.get(ctx, c.cfg.EntityTable, id)
	if err != nil {
		if upstream.IsStatus(err, http.StatusNotFound) {
			return nil, records.ErrEntityNotFound
		}

		return nil, err
	}

	return toEntity(rec), nil
}

func (c *Client) UpdateEntity(ctx context.Context, id string, update records.EntityUpdate) (*records.Entity, error) {
	fields := map[string]any{}

	if update.Status != nil {
		fields[FieldStatus] = *update.Status
	}

	if update.ResponseLog != nil {
		fields[FieldResponseLog] = *update.ResponseLog
	}

	if update.AvailableResponderIDs != nil {
		fields[FieldAvailableTechs] = update.AvailableResponderIDs
	}

	payload, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return nil, err
	}

	var rec record

	err = c.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := c.newRequest(ctx, http.MethodPatch, c.recordURL(c.cfg.EntityTable, id), bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}

		req.Header.Set("Content-Type", "application/json")

		return req, nil
	}, &rec)
	if err != nil {
		if upstream.IsStatus(err, http.StatusNotFound) {
			return nil, records.ErrEntityNotFound
		}

		return nil, err
	}

	return toEntity(rec), nil
}

func (c *Client) GetResponder(ctx context.Context, id string) (*records.Responder, error) {
	rec, err := c.get(ctx, c.cfg.ResponderTable, id)
	if err != nil {
		if upstream.IsStatus(err, http.StatusNotFound) {
			return nil, records.ErrResponderNotFound
		}

		return nil, err
	}

	return toResponder(rec), nil
}

// FindResponderByPhone scans the responder table because stored numbers are free-form.
func (c *Client) FindResponderByPhone(ctx context.Context, number string) (*records.Responder, error) {
	offset := ""

	for {
		query := url.Values{}
		query.Add("fields[]", FieldResponderName)
		query.Add("fields[]", FieldResponderPhone)

		if offset != "" {
			query.Set("offset", offset)
		}

		var page recordList

		endpoint := c.tableURL(c.cfg.ResponderTable) + "?" + query.Encode()

		err := c.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
			return c.newRequest(ctx, http.MethodGet, endpoint, nil)
		}, &page)
		if err != nil {
			return nil, err
		}

		for _, rec := range page.Records {
			responder := toResponder(rec)
			if phone.Equal(responder.Phone, number) {
				return responder, nil
			}
		}

		if page.Offset == "" {
			return nil, records.ErrResponderNotFound
		}

		offset = page.Offset
	}
}

func (c *Client) get(ctx context.Context, table, id string) (record, error) {
	var rec record

	if id == "" {
		return rec, &upstream.Failure{Service: c.client.Service(), Status: http.StatusNotFound}
	}

	err := c.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, c.recordURL(table, id), nil)
	}, &rec)

	return rec, err
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body *bytes.Reader) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)

	if body == nil {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, body)
	}

	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	return req, nil
}

func (c *Client) tableURL(table string) string {
	return fmt.Sprintf("%s/%s/%s", c.cfg.BaseURL, url.PathEscape(c.cfg.BaseID), url.PathEscape(table))
}

func (c *Client) recordURL(table, id string) string {
	return c.tableURL(table) + "/" + url.PathEscape(id)
}

func toEntity(rec record) *records.Entity {
	return &records.Entity{
		ID:                    rec.ID,
		Name:                  stringField(rec.Fields, FieldEntityName),
		Status:                stringField(rec.Fields, FieldStatus),
		ResponseLog:           stringField(rec.Fields, FieldResponseLog),
		AvailableResponderIDs: stringsField(rec.Fields, FieldAvailableTechs),
	}
}

func toResponder(rec record) *records.Responder {
	return &records.Responder{
		ID:    rec.ID,
		Name:  stringField(rec.Fields, FieldResponderName),
		Phone: stringField(rec.Fields, FieldResponderPhone),
	}
}

func stringField(fields map[string]any, name string) string {
	s, _ := fields[name].(string)

	return s
}

func stringsField(fields map[string]any, name string) []string {
	raw, ok := fields[name].([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(raw))

	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}

	return out
}

// Compile-time check.
var _ records.Store = (*Client)(nil)
