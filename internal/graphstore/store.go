// Package graphstore provides the read-side adapter over the quote graph,
// which links services, vendor quotes, and geocoded locations.
package graphstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/marginmind/backend/internal/config"
	"github.com/marginmind/backend/internal/geo"
	"github.com/marginmind/backend/internal/model"
)

// ErrServiceNotFound is returned when the requested service ID has no node
// in the graph.
var ErrServiceNotFound = errors.New("service not found")

// Quote statuses considered live enough to negotiate against.
var feasibleStatuses = []string{"Completed", "Quoted", "Manual Quote"}

// VendorSummary is a vendor directory entry.
type VendorSummary struct {
	Name       string `json:"name"`
	QuoteCount int64  `json:"quote_count"`
}

// Store wraps the graph driver with domain queries.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// New connects to the graph and verifies connectivity.
func New(ctx context.Context, cfg config.GraphConfig, logger *slog.Logger) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create graph driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("graph connectivity: %w", err)
	}
	return &Store{driver: driver, database: cfg.Database, logger: logger}, nil
}

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeRead,
	})
}

// GetService loads the service node and its location. The contracted client
// MRC from the graph is a fallback; callers overlay the records-store value
// when one exists.
func (s *Store) GetService(ctx context.Context, serviceID string) (*model.ServiceContext, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	svc, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) (*model.ServiceContext, error) {
		result, err := tx.Run(ctx, `
			MATCH (s:Service {service_id: $id})
			OPTIONAL MATCH (s)-[:AT_LOCATION]->(l:Location)
			RETURN s.service_id AS service_id,
			       s.customer AS customer,
			       s.client_mrc AS client_mrc,
			       s.currency AS currency,
			       s.bandwidth_bps AS bandwidth_bps,
			       l.address AS address,
			       l.latitude AS latitude,
			       l.longitude AS longitude
			LIMIT 1`,
			map[string]any{"id": serviceID})
		if err != nil {
			return nil, err
		}
		rec, err := result.Single(ctx)
		if err != nil {
			return nil, ErrServiceNotFound
		}

		svc := &model.ServiceContext{
			ServiceID: asString(rec, "service_id"),
			Customer:  asString(rec, "customer"),
			ClientMRC: asFloat(rec, "client_mrc"),
			Currency:  model.CurrencyUSD,
			Address:   asString(rec, "address"),
		}
		if cur := asString(rec, "currency"); cur != "" {
			svc.Currency = model.Currency(cur)
		}
		svc.BandwidthBps = asInt64Ptr(rec, "bandwidth_bps")
		svc.Latitude = asFloatPtr(rec, "latitude")
		svc.Longitude = asFloatPtr(rec, "longitude")
		return svc, nil
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// GetAssociatedQuotes returns live vendor quotes attached directly to a
// service, newest first per the graph's own ordering.
func (s *Store) GetAssociatedQuotes(ctx context.Context, serviceID string) ([]model.VendorQuote, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	return neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) ([]model.VendorQuote, error) {
		result, err := tx.Run(ctx, `
			MATCH (s:Service {service_id: $id})-[:HAS_QUOTE]->(q:Quote)-[:FROM_VENDOR]->(v:Vendor)
			WHERE q.status IN $statuses AND q.mrc > 0
			OPTIONAL MATCH (q)-[:AT_LOCATION]->(l:Location)
			RETURN q.record_id AS record_id, v.name AS vendor,
			       q.mrc AS mrc, q.nrc AS nrc, q.currency AS currency,
			       q.bandwidth_bps AS bandwidth_bps, q.service_type AS service_type,
			       q.status AS status, q.lead_time_days AS lead_time_days,
			       q.quoted_at AS quoted_at,
			       l.latitude AS latitude, l.longitude AS longitude
			ORDER BY q.quoted_at DESC`,
			map[string]any{"id": serviceID, "statuses": feasibleStatuses})
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}

		quotes := make([]model.VendorQuote, 0, len(records))
		for _, rec := range records {
			quotes = append(quotes, quoteFromRecord(rec, model.SourceAssociated))
		}
		return quotes, nil
	})
}

// GetNearbyQuotes returns recent quotes at other locations within
// radiusMeters of the given point, excluding quotes already attached to
// excludeServiceID. The graph query prefilters with a bounding box; exact
// distances come from a haversine pass here.
func (s *Store) GetNearbyQuotes(ctx context.Context, lat, lon, radiusMeters float64, since time.Time, excludeServiceID string) ([]model.VendorQuote, error) {
	latMin, latMax, lonMin, lonMax := geo.BoundingBox(lat, lon, radiusMeters)

	session := s.session(ctx)
	defer session.Close(ctx)

	candidates, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) ([]model.VendorQuote, error) {
		result, err := tx.Run(ctx, `
			MATCH (q:Quote)-[:AT_LOCATION]->(l:Location), (q)-[:FROM_VENDOR]->(v:Vendor)
			WHERE l.latitude >= $minLat AND l.latitude <= $maxLat
			  AND l.longitude >= $minLon AND l.longitude <= $maxLon
			  AND q.status IN $statuses AND q.mrc > 0
			  AND q.quoted_at >= datetime($since)
			  AND NOT (:Service {service_id: $exclude})-[:HAS_QUOTE]->(q)
			RETURN q.record_id AS record_id, v.name AS vendor,
			       q.mrc AS mrc, q.nrc AS nrc, q.currency AS currency,
			       q.bandwidth_bps AS bandwidth_bps, q.service_type AS service_type,
			       q.status AS status, q.lead_time_days AS lead_time_days,
			       q.quoted_at AS quoted_at,
			       l.latitude AS latitude, l.longitude AS longitude`,
			map[string]any{
				"minLat": latMin, "maxLat": latMax,
				"minLon": lonMin, "maxLon": lonMax,
				"statuses": feasibleStatuses,
				"since":    since.UTC().Format(time.RFC3339),
				"exclude":  excludeServiceID,
			})
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}

		quotes := make([]model.VendorQuote, 0, len(records))
		for _, rec := range records {
			quotes = append(quotes, quoteFromRecord(rec, model.SourceNearby))
		}
		return quotes, nil
	})
	if err != nil {
		return nil, err
	}

	within := candidates[:0]
	for _, q := range candidates {
		if q.Latitude == nil || q.Longitude == nil {
			continue
		}
		d := geo.Haversine(lat, lon, *q.Latitude, *q.Longitude)
		if d <= radiusMeters {
			q.DistanceMeters = d
			within = append(within, q)
		}
	}
	return within, nil
}

// SearchVendors lists vendors whose name contains the search term, ordered
// by how many live quotes they have.
func (s *Store) SearchVendors(ctx context.Context, search string, limit int) ([]VendorSummary, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	return neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) ([]VendorSummary, error) {
		result, err := tx.Run(ctx, `
			MATCH (v:Vendor)
			WHERE $search = '' OR toLower(v.name) CONTAINS toLower($search)
			OPTIONAL MATCH (v)<-[:FROM_VENDOR]-(q:Quote)
			RETURN v.name AS name, count(q) AS quote_count
			ORDER BY quote_count DESC, name
			LIMIT $limit`,
			map[string]any{"search": search, "limit": limit})
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}

		vendors := make([]VendorSummary, 0, len(records))
		for _, rec := range records {
			vendors = append(vendors, VendorSummary{
				Name:       asString(rec, "name"),
				QuoteCount: asInt64(rec, "quote_count"),
			})
		}
		return vendors, nil
	})
}

func quoteFromRecord(rec *neo4j.Record, source model.QuoteSource) model.VendorQuote {
	q := model.VendorQuote{
		ID:          uuid.New(),
		RecordID:    asInt64(rec, "record_id"),
		VendorName:  asString(rec, "vendor"),
		MRC:         asFloat(rec, "mrc"),
		NRC:         asFloat(rec, "nrc"),
		Currency:    model.CurrencyUSD,
		ServiceType: asString(rec, "service_type"),
		Status:      asString(rec, "status"),
		Source:      source,
		QuotedAt:    asTime(rec, "quoted_at"),
	}
	if cur := asString(rec, "currency"); cur != "" {
		q.Currency = model.Currency(cur)
	}
	q.BandwidthBps = asInt64Ptr(rec, "bandwidth_bps")
	q.Latitude = asFloatPtr(rec, "latitude")
	q.Longitude = asFloatPtr(rec, "longitude")
	if days := asInt64Ptr(rec, "lead_time_days"); days != nil {
		d := int(*days)
		q.LeadTimeDays = &d
	}
	return q
}

func asString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func asFloat(rec *neo4j.Record, key string) float64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

func asFloatPtr(rec *neo4j.Record, key string) *float64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	switch n := v.(type) {
	case float64:
		return &n
	case int64:
		f := float64(n)
		return &f
	}
	return nil
}

func asInt64(rec *neo4j.Record, key string) int64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

func asInt64Ptr(rec *neo4j.Record, key string) *int64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	switch n := v.(type) {
	case int64:
		return &n
	case float64:
		i := int64(n)
		return &i
	}
	return nil
}

func asTime(rec *neo4j.Record, key string) time.Time {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}
