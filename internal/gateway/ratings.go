package gateway

import (
	"context"

	"foro/internal/aggregate"
	"foro/internal/core"
	"foro/internal/docstore"
	"foro/internal/log"
)

func ratingsPath(eventID string) string {
	return docstore.SubPath(core.EventsCollection, eventID, core.RatingsCollection)
}

func decodeRatings(eventID string) func([]docstore.Snapshot) []core.Rating {
	return decodeAll(func(s docstore.Snapshot) core.Rating {
		return core.RatingFromDocument(eventID, s.ID, s.Data)
	})
}

// SaveRating stores the session user's score for the event. The document id
// is the user id, so a second rating replaces the first.
func (g *Gateway) SaveRating(ctx context.Context, eventID string, score int) (core.Rating, error) {
	eventID, err := requireID("eventId", eventID)
	if err != nil {
		return core.Rating{}, err
	}
	if err := core.ValidateScore(score); err != nil {
		return core.Rating{}, err
	}
	userID, err := g.currentUser()
	if err != nil {
		return core.Rating{}, err
	}

	r := core.Rating{EventID: eventID, UserID: userID, Score: score, Timestamp: g.millis()}
	path := ratingsPath(eventID)
	if err := g.store.Set(ctx, path, userID, r.ToDocument()); err != nil {
		g.logFailure(ctx, "Failed to save rating", log.OpUpdate, path, userID, err)
		return core.Rating{}, storeErr(log.OpUpdate, path, err)
	}
	g.logger.InfoContext(ctx, "Rating saved",
		log.FieldCollection, path, log.FieldUserID, userID, "score", score)
	return r, nil
}

func (g *Gateway) ListRatings(ctx context.Context, eventID string) ([]core.Rating, error) {
	eventID, err := requireID("eventId", eventID)
	if err != nil {
		return nil, err
	}
	path := ratingsPath(eventID)
	snaps, err := g.store.Query(ctx, path, docstore.Query{})
	if err != nil {
		return nil, storeErr(log.OpQuery, path, err)
	}
	return decodeRatings(eventID)(snaps), nil
}

func (g *Gateway) SubscribeRatings(ctx context.Context, eventID string) (*Stream[core.Rating], error) {
	eventID, err := requireID("eventId", eventID)
	if err != nil {
		return nil, err
	}
	return watch(ctx, g, ratingsPath(eventID), docstore.Query{}, decodeRatings(eventID))
}

// AverageRating is the mean score for the event, 0 when unrated.
func (g *Gateway) AverageRating(ctx context.Context, eventID string) (float64, error) {
	ratings, err := g.ListRatings(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return aggregate.AverageRating(ratings), nil
}
