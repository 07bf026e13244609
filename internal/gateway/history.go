package gateway

import (
	"context"

	"foro/internal/core"
	"foro/internal/docstore"
	"foro/internal/log"
)

func decodeHistory(s docstore.Snapshot) core.HistoryEntry {
	return core.HistoryEntryFromDocument(s.ID, s.Data)
}

// SubscribeUserHistory streams userID's history entries, newest first.
func (g *Gateway) SubscribeUserHistory(ctx context.Context, userID string) (*Stream[core.HistoryEntry], error) {
	userID, err := requireUserID(userID)
	if err != nil {
		return nil, err
	}
	q := docstore.Query{}.Where(core.KeyUserID, userID).Order(core.KeyTimestamp, true)
	return watch(ctx, g, core.HistoryCollection, q, decodeAll(decodeHistory))
}

func (g *Gateway) ListUserHistory(ctx context.Context, userID string) ([]core.HistoryEntry, error) {
	userID, err := requireUserID(userID)
	if err != nil {
		return nil, err
	}
	q := docstore.Query{}.Where(core.KeyUserID, userID).Order(core.KeyTimestamp, true)
	snaps, err := g.store.Query(ctx, core.HistoryCollection, q)
	if err != nil {
		return nil, storeErr(log.OpQuery, core.HistoryCollection, err)
	}
	return decodeAll(decodeHistory)(snaps), nil
}
