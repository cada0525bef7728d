package model

// PaymentMethod is the discriminant of the Payment union.
type PaymentMethod string

const (
	MethodCard         PaymentMethod = "card"
	MethodJazzCash     PaymentMethod = "jazzcash"
	MethodEasyPaisa    PaymentMethod = "easypaisa"
	MethodBankTransfer PaymentMethod = "bank-transfer"
	MethodCash         PaymentMethod = "cash"
)

// Known reports whether m is one of the supported methods.
func (m PaymentMethod) Known() bool {
	switch m {
	case MethodCard, MethodJazzCash, MethodEasyPaisa, MethodBankTransfer, MethodCash:
		return true
	}
	return false
}

// IsWallet reports whether m is one of the mobile-wallet variants.
func (m PaymentMethod) IsWallet() bool {
	return m == MethodJazzCash || m == MethodEasyPaisa
}

// Payment is a tagged union keyed by Method.  Exactly the arm that
// matches Method is populated: Card for card, Wallet for the wallet
// variants, Bank for bank transfers and none for cash.
type Payment struct {
	Method PaymentMethod  `json:"method"`
	Card   *CardDetails   `json:"card,omitempty"`
	Wallet *WalletDetails `json:"wallet,omitempty"`
	Bank   *BankDetails   `json:"bank,omitempty"`
}

// CardDetails holds the fields of a card payment.
type CardDetails struct {
	Number     string `json:"number"`
	HolderName string `json:"holder_name"`
	Expiry     string `json:"expiry"` // MM/YY
	CVV        string `json:"cvv"`
}

// WalletDetails holds the fields of a mobile-wallet payment.
type WalletDetails struct {
	Phone        string `json:"phone"`
	AccountTitle string `json:"account_title"`
}

// BankDetails holds the fields of a bank transfer.
type BankDetails struct {
	IBAN         string `json:"iban"`
	BankName     string `json:"bank_name"`
	AccountTitle string `json:"account_title"`
}

// ShapeMatches reports whether the populated arms agree with Method.
func (p Payment) ShapeMatches() bool {
	card, wallet, bank := p.Card != nil, p.Wallet != nil, p.Bank != nil
	switch {
	case p.Method == MethodCard:
		return card && !wallet && !bank
	case p.Method.IsWallet():
		return wallet && !card && !bank
	case p.Method == MethodBankTransfer:
		return bank && !card && !wallet
	case p.Method == MethodCash:
		return !card && !wallet && !bank
	}
	return false
}

// Fields flattens the populated arm into the raw field map consumed by
// the payment validator.  Keys match the JSON names of the arm.
func (p Payment) Fields() map[string]string {
	out := map[string]string{}
	if p.Card != nil {
		out["number"] = p.Card.Number
		out["holder_name"] = p.Card.HolderName
		out["expiry"] = p.Card.Expiry
		out["cvv"] = p.Card.CVV
	}
	if p.Wallet != nil {
		out["phone"] = p.Wallet.Phone
		out["account_title"] = p.Wallet.AccountTitle
	}
	if p.Bank != nil {
		out["iban"] = p.Bank.IBAN
		out["bank_name"] = p.Bank.BankName
		out["account_title"] = p.Bank.AccountTitle
	}
	return out
}

// Clone returns a deep copy so snapshots never share arms.
func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	out := Payment{Method: p.Method}
	if p.Card != nil {
		c := *p.Card
		out.Card = &c
	}
	if p.Wallet != nil {
		w := *p.Wallet
		out.Wallet = &w
	}
	if p.Bank != nil {
		b := *p.Bank
		out.Bank = &b
	}
	return &out
}
