package billing

// InvoicePermissions is the advisory action projection for one invoice,
// derived from the same predicates the operations guard with.
type InvoicePermissions struct {
	CanEdit   bool `json:"canEdit"`
	CanSave   bool `json:"canSave"`
	CanPrint  bool `json:"canPrint"`
	CanCancel bool `json:"canCancel"`
	CanDelete bool `json:"canDelete"`
}

// PermissionsFor projects what the caller may do with the invoice.
func PermissionsFor(inv *Invoice) InvoicePermissions {
	if inv == nil || inv.DeletedAt != nil {
		return InvoicePermissions{}
	}
	return InvoicePermissions{
		CanEdit:   inv.Editable(),
		CanSave:   inv.Editable(),
		CanPrint:  inv.ID != 0 && inv.Printable(),
		CanCancel: !inv.IsCancelled,
		CanDelete: inv.Editable(),
	}
}
