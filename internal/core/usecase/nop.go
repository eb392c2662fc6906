package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
)

var errSuperseded = errors.New("superseded by a newer selection")

type nopObserver struct{}

func (nopObserver) ObserveListFetch(domain.Level, string, time.Duration) {}
func (nopObserver) ObserveStaleResponse(domain.Level)                    {}
func (nopObserver) ObserveUpload(string, time.Duration)                  {}
func (nopObserver) ObserveViewerLoad(string, time.Duration)              {}
func (nopObserver) ObserveTokenFetch(string)                             {}

type nopPublisher struct{}

func (nopPublisher) PublishActivity(context.Context, domain.Activity) error { return nil }
