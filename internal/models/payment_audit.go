package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventType names an audited step of the payment flow
type PaymentEventType string

const (
	PaymentEventVerifyRequested    PaymentEventType = "verify_requested"
	PaymentEventVerified           PaymentEventType = "verified"
	PaymentEventVerifyFailed       PaymentEventType = "verify_failed"
	PaymentEventCompleted          PaymentEventType = "payment_completed"
	PaymentEventCompleteFailed     PaymentEventType = "payment_complete_failed"
	PaymentEventDuplicate          PaymentEventType = "duplicate_rejected"
	PaymentEventAmountMismatch     PaymentEventType = "amount_mismatch"
	PaymentEventFailureCancelled   PaymentEventType = "reservation_cancelled_on_failure"
	PaymentEventCancelRequested    PaymentEventType = "cancel_requested"
	PaymentEventCancelled          PaymentEventType = "payment_cancelled"
	PaymentEventCancelFailed       PaymentEventType = "cancel_failed"
	PaymentEventWebhookReceived    PaymentEventType = "webhook_received"
	PaymentEventGatewayUnreachable PaymentEventType = "gateway_unreachable"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceBackend PaymentEventSource = "backend"
	PaymentSourceWebhook PaymentEventSource = "portone_webhook"
	PaymentSourceGateway PaymentEventSource = "portone_api"
	PaymentSourceUser    PaymentEventSource = "user"
	PaymentSourceAdmin   PaymentEventSource = "admin"
)

// PaymentAudit is an immutable audit log entry for a payment event
type PaymentAudit struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	ReservationID *uuid.UUID `json:"reservation_id,omitempty" db:"reservation_id"`
	PaymentID     *uuid.UUID `json:"payment_id,omitempty" db:"payment_id"`
	IMPUID        *string    `json:"imp_uid,omitempty" db:"imp_uid"`
	MerchantUID   *string    `json:"merchant_uid,omitempty" db:"merchant_uid"`

	EventType   PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource PaymentEventSource `json:"event_source" db:"event_source"`

	ExpectedAmount *int64 `json:"expected_amount,omitempty" db:"expected_amount"`
	ReceivedAmount *int64 `json:"received_amount,omitempty" db:"received_amount"`
	AmountsMatch   *bool  `json:"amounts_match,omitempty" db:"amounts_match"`

	GatewayStatus *string `json:"gateway_status,omitempty" db:"gateway_status"`
	Payload       JSONB   `json:"payload,omitempty" db:"payload"`

	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`

	IPAddress  *string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  *string `json:"user_agent,omitempty" db:"user_agent"`
	DeviceType *string `json:"device_type,omitempty" db:"device_type"`
	Browser    *string `json:"browser,omitempty" db:"browser"`
	OS         *string `json:"os,omitempty" db:"os"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

func (pa *PaymentAudit) SetReservation(id uuid.UUID) *PaymentAudit {
	pa.ReservationID = &id
	return pa
}

func (pa *PaymentAudit) SetPayment(id uuid.UUID) *PaymentAudit {
	pa.PaymentID = &id
	return pa
}

// SetGatewayRefs sets the gateway transaction id and our order id
func (pa *PaymentAudit) SetGatewayRefs(impUID, merchantUID string) *PaymentAudit {
	if impUID != "" {
		pa.IMPUID = &impUID
	}
	if merchantUID != "" {
		pa.MerchantUID = &merchantUID
	}
	return pa
}

// SetAmounts records both amounts and returns whether they match exactly
func (pa *PaymentAudit) SetAmounts(expected, received int64) bool {
	pa.ExpectedAmount = &expected
	pa.ReceivedAmount = &received
	match := expected == received
	pa.AmountsMatch = &match
	return match
}

func (pa *PaymentAudit) SetGatewayStatus(status string) *PaymentAudit {
	pa.GatewayStatus = &status
	return pa
}

func (pa *PaymentAudit) SetPayload(payload map[string]interface{}) *PaymentAudit {
	pa.Payload = JSONB(payload)
	return pa
}

func (pa *PaymentAudit) SetError(err error) *PaymentAudit {
	if err == nil {
		return pa
	}
	msg := err.Error()
	pa.ErrorMessage = &msg
	return pa
}

// SetClient records who made the request and from what device
func (pa *PaymentAudit) SetClient(ip, userAgent string, device DeviceInfo) *PaymentAudit {
	if ip != "" {
		pa.IPAddress = &ip
	}
	if userAgent != "" {
		pa.UserAgent = &userAgent
	}
	if device.DeviceType != "" {
		pa.DeviceType = &device.DeviceType
	}
	if device.Browser != "" {
		pa.Browser = &device.Browser
	}
	if device.OS != "" {
		pa.OS = &device.OS
	}
	return pa
}

// DeviceInfo is what we can tell about a client from its User-Agent
type DeviceInfo struct {
	DeviceType string `json:"device_type"`
	Browser    string `json:"browser"`
	OS         string `json:"os"`
}
