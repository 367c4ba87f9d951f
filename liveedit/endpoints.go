package liveedit

import (
	"context"

	"github.com/hazyhaar/liveedit/audit"
	"github.com/hazyhaar/liveedit/edit"
	"github.com/hazyhaar/liveedit/kit"
)

// endpoints are the mutating operations shared by the HTTP and MCP surfaces.
// Each one is logged and written to the audit trail.
type endpoints struct {
	apply        kit.Endpoint
	undo         kit.Endpoint
	clearHistory kit.Endpoint
	save         kit.Endpoint
	closeSession kit.Endpoint
}

type sessionReq struct {
	SessionID string `json:"session_id"`
}

type applyReq struct {
	SessionID   string           `json:"session_id"`
	Instruction edit.Instruction `json:"instruction"`
}

func (s *Service) buildEndpoints() endpoints {
	wrap := func(op string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.Logging(s.logger, op), audit.Middleware(s.audit, op))(ep)
	}
	return endpoints{
		apply: wrap("apply", func(ctx context.Context, req any) (any, error) {
			r := req.(*applyReq)
			res, err := s.Apply(ctx, r.SessionID, r.Instruction)
			if err != nil {
				return nil, err
			}
			return res, res.Err()
		}),
		undo: wrap("undo", func(ctx context.Context, req any) (any, error) {
			res, err := s.Undo(ctx, req.(*sessionReq).SessionID)
			if err != nil {
				return nil, err
			}
			return res, res.Err()
		}),
		clearHistory: wrap("clear_history", func(_ context.Context, req any) (any, error) {
			return nil, s.ClearHistory(req.(*sessionReq).SessionID)
		}),
		save: wrap("save", func(ctx context.Context, req any) (any, error) {
			return s.Save(ctx, req.(*sessionReq).SessionID)
		}),
		closeSession: wrap("close_session", func(_ context.Context, req any) (any, error) {
			return nil, s.CloseSession(req.(*sessionReq).SessionID)
		}),
	}
}

// AuditTrail returns the audited calls made on a session, oldest first.
func (s *Service) AuditTrail(ctx context.Context, sessionID string, limit int) ([]*audit.Entry, error) {
	return s.audit.BySession(ctx, sessionID, limit)
}
