package validation

import (
	"strings"
	"time"

	"github.com/iliyamo/intercity-reservation/internal/model"
)

// Result is the outcome of payment validation.  On success Data holds
// the normalized payment; on failure Errors maps field names to
// human-readable messages.
type Result struct {
	Success bool              `json:"success"`
	Data    *model.Payment    `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func fail(errs map[string]string) Result {
	return Result{Success: false, Errors: errs}
}

// ValidatePayment routes method to its rule set and validates the raw
// fields against it.  Unknown methods fail with a "method" error.
func ValidatePayment(method model.PaymentMethod, fields map[string]string, now time.Time) Result {
	if fields == nil {
		fields = map[string]string{}
	}
	switch {
	case method == model.MethodCard:
		return validateCard(fields, now)
	case method.IsWallet():
		return validateWallet(method, fields)
	case method == model.MethodBankTransfer:
		return validateBank(fields)
	case method == model.MethodCash:
		return Result{Success: true, Data: &model.Payment{Method: model.MethodCash}}
	default:
		return fail(map[string]string{"method": "unsupported payment method"})
	}
}

// ValidatePaymentDetails checks that the populated arm matches the
// declared method before dispatching to ValidatePayment.
func ValidatePaymentDetails(p *model.Payment, now time.Time) Result {
	if p == nil {
		return fail(map[string]string{"payment": "payment details are required"})
	}
	if !p.Method.Known() {
		return fail(map[string]string{"method": "unsupported payment method"})
	}
	if !p.ShapeMatches() {
		return fail(map[string]string{"payment": "payment details do not match method " + string(p.Method)})
	}
	return ValidatePayment(p.Method, p.Fields(), now)
}

func validateCard(f map[string]string, now time.Time) Result {
	errs := map[string]string{}
	number := stripSeparators(f["number"])
	if !IsCardNumber(number) {
		errs["number"] = "card number is invalid"
	}
	holder := strings.TrimSpace(f["holder_name"])
	if !IsCardHolder(holder) {
		errs["holder_name"] = "cardholder name must be 2-60 letters"
	}
	expiry := strings.TrimSpace(f["expiry"])
	if _, ok := ParseExpiry(expiry, now.Location()); !ok {
		errs["expiry"] = "expiry must be in MM/YY format"
	} else if !ExpiryInFuture(expiry, now) {
		errs["expiry"] = "card has expired"
	}
	cvv := strings.TrimSpace(f["cvv"])
	if !IsCVV(cvv) {
		errs["cvv"] = "CVV must be 3 or 4 digits"
	}
	if len(errs) > 0 {
		return fail(errs)
	}
	return Result{Success: true, Data: &model.Payment{
		Method: model.MethodCard,
		Card:   &model.CardDetails{Number: number, HolderName: holder, Expiry: expiry, CVV: cvv},
	}}
}

func validateWallet(method model.PaymentMethod, f map[string]string) Result {
	errs := map[string]string{}
	phone := NormalizeMobile(f["phone"])
	if !mobilePattern.MatchString(phone) {
		errs["phone"] = "mobile number must look like 03XXXXXXXXX"
	}
	title := strings.TrimSpace(f["account_title"])
	if !LengthBetween(title, 2, 50) {
		errs["account_title"] = "account title must be 2-50 characters"
	}
	if len(errs) > 0 {
		return fail(errs)
	}
	return Result{Success: true, Data: &model.Payment{
		Method: method,
		Wallet: &model.WalletDetails{Phone: phone, AccountTitle: title},
	}}
}

func validateBank(f map[string]string) Result {
	errs := map[string]string{}
	iban := NormalizeIBAN(f["iban"])
	if !IsIBAN(iban) {
		errs["iban"] = "account number is not a valid IBAN"
	}
	bank := strings.TrimSpace(f["bank_name"])
	if bank == "" {
		errs["bank_name"] = "bank name is required"
	}
	title := strings.TrimSpace(f["account_title"])
	if title == "" {
		errs["account_title"] = "account title is required"
	}
	if len(errs) > 0 {
		return fail(errs)
	}
	return Result{Success: true, Data: &model.Payment{
		Method: model.MethodBankTransfer,
		Bank:   &model.BankDetails{IBAN: iban, BankName: bank, AccountTitle: title},
	}}
}
