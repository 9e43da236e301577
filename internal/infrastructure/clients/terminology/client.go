package terminology

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/carebridge/clinconsult/internal/domain/entities"
	"github.com/carebridge/clinconsult/internal/domain/providers"
	"github.com/carebridge/clinconsult/pkg/config"
	"github.com/carebridge/clinconsult/pkg/errors"
	"github.com/carebridge/clinconsult/pkg/retry"
)

// Client talks to a FHIR terminology server (the NHS ontology service in
// production). Responses are cached with a TTL, and when both the server and
// the cache miss, a small static fallback directory keeps the pipeline
// answering with clearly marked degraded results.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      providers.CacheProvider
	ttlSeconds int
	retryCfg   retry.Config
	fallback   *fallbackDirectory
}

var _ providers.TerminologyProvider = (*Client)(nil)

// NewClient creates a terminology client. When client credentials are
// configured the underlying HTTP client handles the OAuth2 token flow,
// refreshing transparently on expiry.
func NewClient(cfg *config.TerminologyConfig, cache providers.CacheProvider) *Client {
	httpClient := &http.Client{Timeout: 15 * time.Second}

	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		creds := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = creds.Client(ctx)
		httpClient.Timeout = 15 * time.Second
	} else {
		log.Warn().Msg("Terminology client credentials not configured, requests will be unauthenticated")
	}

	retryCfg := retry.Config{
		MaxAttempts:     3,
		InitialDelay:    200 * time.Millisecond,
		MaxDelay:        2 * time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: 10 * time.Second,
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		cache:      cache,
		ttlSeconds: cfg.CacheTTLSeconds,
		retryCfg:   retryCfg,
		fallback:   defaultFallbackDirectory(),
	}
}

// fhirParameters is the FHIR Parameters resource envelope used by terminology
// operation responses.
type fhirParameters struct {
	ResourceType string          `json:"resourceType"`
	Parameter    []fhirParameter `json:"parameter"`
}

type fhirParameter struct {
	Name         string          `json:"name"`
	ValueString  string          `json:"valueString,omitempty"`
	ValueCode    string          `json:"valueCode,omitempty"`
	ValueBoolean *bool           `json:"valueBoolean,omitempty"`
	ValueURI     string          `json:"valueUri,omitempty"`
	Part         []fhirParameter `json:"part,omitempty"`
}

func (p fhirParameters) find(name string) *fhirParameter {
	for i := range p.Parameter {
		if p.Parameter[i].Name == name {
			return &p.Parameter[i]
		}
	}
	return nil
}

func (p fhirParameter) findPart(name string) *fhirParameter {
	for i := range p.Part {
		if p.Part[i].Name == name {
			return &p.Part[i]
		}
	}
	return nil
}

// fhirValueSet is the trimmed ValueSet shape returned by $expand.
type fhirValueSet struct {
	Expansion struct {
		Total    int `json:"total"`
		Contains []struct {
			System  string `json:"system"`
			Code    string `json:"code"`
			Display string `json:"display"`
		} `json:"contains"`
	} `json:"expansion"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return retry.Do(ctx, c.retryCfg, func() error {
		endpoint := c.baseURL + path + "?" + query.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/fhir+json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("terminology server returned status %d for %s", resp.StatusCode, path)
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.cache == nil {
		return false
	}
	data, err := c.cache.Get(ctx, key)
	if err != nil || data == nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, value any) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.ttlSeconds); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache terminology result")
	}
}

// Lookup resolves a code to its display and designations.
func (c *Client) Lookup(ctx context.Context, system, code string) (*entities.LookupResult, error) {
	if system == "" || code == "" {
		return nil, errors.NewValidationError("system and code are required")
	}

	cacheKey := fmt.Sprintf("term:lookup:%s:%s", system, code)
	var cached entities.LookupResult
	if c.readCache(ctx, cacheKey, &cached) {
		cached.Concept.Source = entities.ConceptSourceCache
		return &cached, nil
	}

	query := url.Values{}
	query.Set("system", system)
	query.Set("code", code)

	var envelope fhirParameters
	if err := c.get(ctx, "/CodeSystem/$lookup", query, &envelope); err != nil {
		if result := c.fallback.lookup(system, code); result != nil {
			log.Warn().Err(err).Str("system", system).Str("code", code).
				Msg("Terminology server unavailable, serving fallback lookup")
			return result, nil
		}
		return nil, errors.NewExternalError("terminology lookup failed", err)
	}

	result := &entities.LookupResult{
		Concept: entities.CodedConcept{
			System: system,
			Code:   code,
			Source: entities.ConceptSourceServer,
		},
	}
	if display := envelope.find("display"); display != nil {
		result.Concept.Display = display.ValueString
	}
	for _, param := range envelope.Parameter {
		switch param.Name {
		case "designation":
			if value := param.findPart("value"); value != nil && value.ValueString != "" {
				result.Designations = append(result.Designations, value.ValueString)
			}
		case "property":
			codePart := param.findPart("code")
			valuePart := param.findPart("value")
			if codePart != nil && valuePart != nil {
				if result.Properties == nil {
					result.Properties = make(map[string]string)
				}
				value := valuePart.ValueString
				if value == "" {
					value = valuePart.ValueCode
				}
				result.Properties[codePart.ValueCode] = value
			}
		}
	}
	if result.Concept.Display == "" {
		return nil, errors.NewNotFoundError(fmt.Sprintf("code %s not found in %s", code, system))
	}

	c.writeCache(ctx, cacheKey, result)
	return result, nil
}

// ValidateCode checks a code (and optional display) against a code system.
func (c *Client) ValidateCode(ctx context.Context, system, code, display string) (*entities.ValidationResult, error) {
	if system == "" || code == "" {
		return nil, errors.NewValidationError("system and code are required")
	}

	cacheKey := fmt.Sprintf("term:validate:%s:%s:%s", system, code, display)
	var cached entities.ValidationResult
	if c.readCache(ctx, cacheKey, &cached) {
		cached.Source = entities.ConceptSourceCache
		return &cached, nil
	}

	query := url.Values{}
	query.Set("url", system)
	query.Set("code", code)
	if display != "" {
		query.Set("display", display)
	}

	var envelope fhirParameters
	if err := c.get(ctx, "/CodeSystem/$validate-code", query, &envelope); err != nil {
		if result := c.fallback.validate(system, code, display); result != nil {
			log.Warn().Err(err).Str("system", system).Str("code", code).
				Msg("Terminology server unavailable, serving fallback validation")
			return result, nil
		}
		return nil, errors.NewExternalError("terminology validation failed", err)
	}

	result := &entities.ValidationResult{Source: entities.ConceptSourceServer}
	if param := envelope.find("result"); param != nil && param.ValueBoolean != nil {
		result.Valid = *param.ValueBoolean
	}
	if param := envelope.find("display"); param != nil {
		result.Display = param.ValueString
	}
	if param := envelope.find("message"); param != nil {
		result.Message = param.ValueString
	}

	c.writeCache(ctx, cacheKey, result)
	return result, nil
}

// Expand expands a value set, optionally filtered by a text prefix.
func (c *Client) Expand(ctx context.Context, valueSet, filter string, count int) (*entities.ExpansionResult, error) {
	if valueSet == "" {
		return nil, errors.NewValidationError("value set url is required")
	}
	if count <= 0 {
		count = 20
	}

	cacheKey := fmt.Sprintf("term:expand:%s:%s:%d", valueSet, filter, count)
	var cached entities.ExpansionResult
	if c.readCache(ctx, cacheKey, &cached) {
		cached.Source = entities.ConceptSourceCache
		return &cached, nil
	}

	query := url.Values{}
	query.Set("url", valueSet)
	query.Set("count", strconv.Itoa(count))
	if filter != "" {
		query.Set("filter", filter)
	}

	var envelope fhirValueSet
	if err := c.get(ctx, "/ValueSet/$expand", query, &envelope); err != nil {
		if result := c.fallback.expand(valueSet, filter, count); result != nil {
			log.Warn().Err(err).Str("value_set", valueSet).
				Msg("Terminology server unavailable, serving fallback expansion")
			return result, nil
		}
		return nil, errors.NewExternalError("terminology expansion failed", err)
	}

	result := &entities.ExpansionResult{
		ValueSet: valueSet,
		Total:    envelope.Expansion.Total,
		Concepts: make([]entities.CodedConcept, 0, len(envelope.Expansion.Contains)),
		Source:   entities.ConceptSourceServer,
	}
	for _, item := range envelope.Expansion.Contains {
		result.Concepts = append(result.Concepts, entities.CodedConcept{
			System:  item.System,
			Code:    item.Code,
			Display: item.Display,
			Source:  entities.ConceptSourceServer,
		})
	}

	c.writeCache(ctx, cacheKey, result)
	return result, nil
}

// Translate maps a code from one system to another through a concept map.
func (c *Client) Translate(ctx context.Context, sourceSystem, code, targetSystem string) (*entities.TranslationResult, error) {
	if sourceSystem == "" || code == "" || targetSystem == "" {
		return nil, errors.NewValidationError("source system, code, and target system are required")
	}

	cacheKey := fmt.Sprintf("term:translate:%s:%s:%s", sourceSystem, code, targetSystem)
	var cached entities.TranslationResult
	if c.readCache(ctx, cacheKey, &cached) {
		cached.Source = entities.ConceptSourceCache
		return &cached, nil
	}

	query := url.Values{}
	query.Set("system", sourceSystem)
	query.Set("code", code)
	query.Set("targetsystem", targetSystem)

	var envelope fhirParameters
	if err := c.get(ctx, "/ConceptMap/$translate", query, &envelope); err != nil {
		if result := c.fallback.translate(sourceSystem, code, targetSystem); result != nil {
			log.Warn().Err(err).Str("system", sourceSystem).Str("code", code).
				Msg("Terminology server unavailable, serving fallback translation")
			return result, nil
		}
		return nil, errors.NewExternalError("terminology translation failed", err)
	}

	result := &entities.TranslationResult{Source: entities.ConceptSourceServer}
	if param := envelope.find("result"); param != nil && param.ValueBoolean != nil {
		result.Matched = *param.ValueBoolean
	}
	for _, param := range envelope.Parameter {
		if param.Name != "match" {
			continue
		}
		concept := param.findPart("concept")
		if concept == nil {
			continue
		}
		target := entities.CodedConcept{Source: entities.ConceptSourceServer}
		if system := concept.findPart("system"); system != nil {
			target.System = system.ValueURI
		}
		if codePart := concept.findPart("code"); codePart != nil {
			target.Code = codePart.ValueCode
		}
		if displayPart := concept.findPart("display"); displayPart != nil {
			target.Display = displayPart.ValueString
		}
		if target.Code != "" {
			result.Targets = append(result.Targets, target)
		}
	}

	c.writeCache(ctx, cacheKey, result)
	return result, nil
}
