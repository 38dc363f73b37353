package sales

// OrderFlags is the state snapshot the permission projection derives from.
// The same predicates back the service guards, so the projection can never
// disagree with what the operations actually enforce.
type OrderFlags struct {
	Persisted        bool `json:"persisted"`
	HasInvoice       bool `json:"hasInvoice"`
	ActiveInvoice    bool `json:"activeInvoice"`
	InvoicePrinted   bool `json:"invoicePrinted"`
	InvoiceCancelled bool `json:"invoiceCancelled"`
	HasDeliveryNote  bool `json:"hasDeliveryNote"`
}

// FlagsFor extracts OrderFlags from a loaded order. A nil order stands for an
// unsaved draft.
func FlagsFor(o *SalesOrderWithDetails) OrderFlags {
	if o == nil {
		return OrderFlags{}
	}
	f := OrderFlags{
		Persisted:       o.ID != 0,
		HasDeliveryNote: o.ActiveDeliveryNote() != nil,
	}
	if cur := o.CurrentInvoice(); cur != nil {
		f.HasInvoice = true
		f.InvoiceCancelled = cur.IsCancelled
	}
	if active := o.ActiveInvoice(); active != nil {
		f.ActiveInvoice = true
		f.InvoicePrinted = active.IsPrinted
	}
	return f
}

// OrderPermissions is the advisory projection served to clients. It predicts
// the guards; the operations re-check against current state on execution.
type OrderPermissions struct {
	CanEdit               bool `json:"canEdit"`
	CanSave               bool `json:"canSave"`
	CanCreateInvoice      bool `json:"canCreateInvoice"`
	CanCancel             bool `json:"canCancel"`
	CanDelete             bool `json:"canDelete"`
	CanCreateDeliveryNote bool `json:"canCreateDeliveryNote"`
}

// PermissionsFor projects the action availability for the given flags.
func PermissionsFor(f OrderFlags) OrderPermissions {
	editable := !(f.ActiveInvoice && f.InvoicePrinted)
	return OrderPermissions{
		CanEdit:               editable,
		CanSave:               editable,
		CanCreateInvoice:      f.Persisted && !f.ActiveInvoice,
		CanCancel:             editable,
		CanDelete:             !f.ActiveInvoice,
		CanCreateDeliveryNote: f.Persisted,
	}
}
