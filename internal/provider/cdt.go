// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package provider

import "github.com/openeuropa/oe-translation-sub001/internal/model"

// CDT wire status codes.
const (
	CDTRequestPending    = "PEND"
	CDTRequestInProgress = "INPR"
	CDTRequestCompleted  = "COMP"
	CDTRequestCancelled  = "CANC"

	CDTTargetInProgress = "INPR"
	CDTTargetCompleted  = "CMP"
	CDTTargetCancelled  = "CNCL"
)

// NewCDT builds the CDT provider definition.
func NewCDT(client Client) *Definition {
	return &Definition{
		Kind:   model.ProviderCDT,
		Name:   "Translation Centre (CDT)",
		Client: client,
		RequestStatuses: map[string]string{
			CDTRequestPending:    model.RequestStatusRequested,
			CDTRequestInProgress: model.RequestStatusRequested,
			CDTRequestCompleted:  model.RequestStatusTranslated,
			CDTRequestCancelled:  model.RequestStatusFailed,
		},
		LanguageStatuses: map[string]string{
			CDTTargetInProgress: model.LanguageStatusRequested,
			CDTTargetCompleted:  model.LanguageStatusReview,
			CDTTargetCancelled:  model.LanguageStatusCancelled,
		},
	}
}
