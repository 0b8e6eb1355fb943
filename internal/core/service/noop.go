package service

import (
	"context"

	"github.com/medicore/clinic-api/internal/core/domain"
)

type noopLimiter struct{}

func (noopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }
func (noopLimiter) RecordFailure(context.Context, string) error  { return nil }
func (noopLimiter) Reset(context.Context, string) error          { return nil }

type noopRecorder struct{}

func (noopRecorder) Record(domain.AuthEvent) {}
