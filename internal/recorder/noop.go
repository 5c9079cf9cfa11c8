package recorder

import "AutoTrader/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordOrder(_ *OrderEvent) error             { return nil }
func (n *NoopRecorder) RecordSession(_ *model.SessionEvent) error   { return nil }
func (n *NoopRecorder) RecordLiquidation(_ *LiquidationEvent) error { return nil }
func (n *NoopRecorder) Close() error                                { return nil }
