package template

// GLEntry is the built-in general-ledger template. Callers can supply their
// own template in the ingestion request; this one covers the standard GL
// export shape most accounting systems produce.
var GLEntry = Template{
	Name: "gl_entry",
	Fields: []Field{
		{Name: "entryId", Type: FieldText},
		{Name: "postingDate", Type: FieldDate, Required: true},
		{Name: "accountNumber", Type: FieldText, Required: true},
		{Name: "accountName", Type: FieldText},
		{Name: "clientName", Type: FieldText},
		{Name: "memo", Type: FieldTextarea},
		{Name: "debit", Type: FieldNumber},
		{Name: "credit", Type: FieldNumber},
		{Name: "amount", Type: FieldNumber, Required: true},
		{Name: "currency", Type: FieldText},
		{Name: "journalId", Type: FieldText},
		{Name: "preparer", Type: FieldEmail},
	},
}
