package sdk

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shamank/zgstore-go/pkg/blockchain"
	"github.com/shamank/zgstore-go/pkg/endpoint"
	"github.com/shamank/zgstore-go/pkg/model"
)

// Health probes every indexer and KV endpoint and, when an EVM client is
// configured, reads the signer balance. The report is OK when every endpoint
// answered, DEGRADED when at least one indexer answered but something else
// did not, and UNAVAILABLE when no indexer answered.
func (c *Core) Health(ctx context.Context) model.HealthReport {
	report := model.HealthReport{
		Timestamp: time.Now().UTC(),
		Network:   c.cfg.Network.Name,
		ChainID:   c.cfg.Network.ChainID,
		Signer:    c.cred.Address().Hex(),
		Indexers:  endpointStatuses(c.indexers.Probe(ctx)),
		KV:        endpointStatuses(c.kvRead.Probe(ctx)),
	}

	if c.evm != nil {
		wei, err := c.evm.Balance(ctx, c.cred.Address())
		if err != nil {
			zap.L().Warn("failed to read signer balance", zap.Error(err))
		} else {
			report.Balance = blockchain.WeiToToken(wei).String()
		}
	}

	indexersUp, indexersDown := countStates(report.Indexers)
	_, kvDown := countStates(report.KV)
	switch {
	case indexersUp == 0:
		report.Status = model.StatusUnavailable
		report.Message = "storage network unavailable, try again"
	case indexersDown > 0 || kvDown > 0:
		report.Status = model.StatusDegraded
		report.Message = "some storage endpoints are unreachable"
	default:
		report.Status = model.StatusOK
		report.Message = "storage network reachable"
	}
	return report
}

func endpointStatuses(attempts []endpoint.Attempt) []model.EndpointStatus {
	out := make([]model.EndpointStatus, 0, len(attempts))
	for _, a := range attempts {
		s := model.EndpointStatus{
			URL:       a.URL,
			State:     a.State.String(),
			LatencyMs: a.Latency.Milliseconds(),
		}
		if a.Err != nil {
			s.Error = a.Err.Error()
		}
		out = append(out, s)
	}
	return out
}

func countStates(statuses []model.EndpointStatus) (up, down int) {
	healthy := endpoint.StateHealthy.String()
	for _, s := range statuses {
		if s.State == healthy {
			up++
		} else {
			down++
		}
	}
	return up, down
}
