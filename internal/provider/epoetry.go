// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package provider

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/openeuropa/oe-translation-sub001/internal/model"
)

// ePoetry wire status codes.
const (
	EPoetryRequestSent      = "SenttoDGT"
	EPoetryRequestAccepted  = "Accepted"
	EPoetryRequestRejected  = "Rejected"
	EPoetryRequestCancelled = "Cancelled"
	EPoetryRequestSuspended = "Suspended"
	EPoetryRequestExecuted  = "Executed"

	EPoetryProductRequested = "Requested"
	EPoetryProductAccepted  = "Accepted"
	EPoetryProductOngoing   = "Ongoing"
	EPoetryProductReady     = "ReadyToBeSent"
	EPoetryProductSent      = "Sent"
	EPoetryProductClosed    = "Closed"
	EPoetryProductCancelled = "Cancelled"
	EPoetryProductSuspended = "Suspended"
)

// NewEPoetry builds the ePoetry provider definition. A rejected request maps
// to the failed aggregate status; an executed dossier does not finish the
// request by itself, languages still have to be synchronised one by one.
func NewEPoetry(client Client) *Definition {
	return &Definition{
		Kind:   model.ProviderEPoetry,
		Name:   "DGT ePoetry",
		Client: client,
		RequestStatuses: map[string]string{
			EPoetryRequestSent:      model.RequestStatusRequested,
			EPoetryRequestAccepted:  model.RequestStatusRequested,
			EPoetryRequestRejected:  model.RequestStatusFailed,
			EPoetryRequestCancelled: model.RequestStatusFailed,
			EPoetryRequestSuspended: model.RequestStatusRequested,
			EPoetryRequestExecuted:  model.RequestStatusTranslated,
		},
		LanguageStatuses: map[string]string{
			EPoetryProductRequested: model.LanguageStatusRequested,
			EPoetryProductAccepted:  model.LanguageStatusRequested,
			EPoetryProductOngoing:   model.LanguageStatusRequested,
			EPoetryProductReady:     model.LanguageStatusReview,
			EPoetryProductSent:      model.LanguageStatusReview,
			EPoetryProductClosed:    model.LanguageStatusSynchronised,
			EPoetryProductCancelled: model.LanguageStatusCancelled,
			EPoetryProductSuspended: model.LanguageStatusRequested,
		},
	}
}

// DryRunClient fabricates acknowledgements without talking to any provider.
// The development server and the test suite run with it; production wires the
// real SOAP client in its place.
type DryRunClient struct {
	granted atomic.Int64
}

// NewDryRunClient creates a DryRunClient granting numbers from 11111 up.
func NewDryRunClient() *DryRunClient {
	c := &DryRunClient{}
	c.granted.Store(11110)
	return c
}

// Submit implements Client.
func (c *DryRunClient) Submit(_ context.Context, req *model.TranslationRequest) (Acknowledgement, error) {
	ack := Acknowledgement{}
	switch req.ProviderKind {
	case model.ProviderEPoetry:
		st := req.EPoetry
		number := st.Number
		if number == "" {
			number = strconv.FormatInt(c.granted.Add(1), 10)
			ack.Number = number
		}
		ack.Reference = fmt.Sprintf("%s/%d/%s/%d/%d", st.Code, st.Year, number, st.Version, st.Part)
	case model.ProviderCDT:
		ack.Reference = fmt.Sprintf("CDT-%s", req.ID[:8])
	default:
		return ack, fmt.Errorf("%w: %q", model.ErrUnknownProviderKind, req.ProviderKind)
	}
	return ack, nil
}
