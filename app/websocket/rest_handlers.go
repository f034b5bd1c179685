package websocket

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"PosLedger/app/database"
	"PosLedger/app/models"
	"PosLedger/app/services"

	"gorm.io/gorm"
)

// RESTHandlers exposes the application services over HTTP. Everything except
// login requires a session token in the Authorization header.
type RESTHandlers struct {
	users     *services.UserService
	customers *services.CustomerService
	products  *services.ProductService
	vendors   *services.VendorService
	payments  *services.PaymentService
	sales     *services.SalesService
	settings  *services.SettingsService
	reports   *services.ReportsService
	sheets    *services.SheetsService
	backup    *services.BackupService
	sync      *services.SyncService
	local     *database.LocalDB
}

// NewRESTHandlers wires the handler set
func NewRESTHandlers(
	users *services.UserService,
	customers *services.CustomerService,
	products *services.ProductService,
	vendors *services.VendorService,
	payments *services.PaymentService,
	sales *services.SalesService,
	settings *services.SettingsService,
	reports *services.ReportsService,
	sheets *services.SheetsService,
	backup *services.BackupService,
	sync *services.SyncService,
	local *database.LocalDB,
) *RESTHandlers {
	return &RESTHandlers{
		users:     users,
		customers: customers,
		products:  products,
		vendors:   vendors,
		payments:  payments,
		sales:     sales,
		settings:  settings,
		reports:   reports,
		sheets:    sheets,
		backup:    backup,
		sync:      sync,
		local:     local,
	}
}

// Register mounts every route on the mux
func (h *RESTHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/login", h.HandleLogin)
	mux.HandleFunc("/api/auth/logout", h.auth(h.HandleLogout))
	mux.HandleFunc("/api/auth/session", h.auth(h.HandleSession))
	mux.HandleFunc("/api/auth/password", h.auth(h.HandleChangePassword))

	mux.HandleFunc("/api/customers", h.auth(h.HandleCustomers))
	mux.HandleFunc("/api/customers/export", h.auth(h.HandleCustomersExport))
	mux.HandleFunc("/api/customers/import", h.auth(h.HandleCustomersImport))
	mux.HandleFunc("/api/customers/", h.auth(h.HandleCustomerByID))

	mux.HandleFunc("/api/products", h.auth(h.HandleProducts))
	mux.HandleFunc("/api/products/export", h.auth(h.HandleProductsExport))
	mux.HandleFunc("/api/products/import", h.auth(h.HandleProductsImport))
	mux.HandleFunc("/api/products/", h.auth(h.HandleProductByID))

	mux.HandleFunc("/api/vendors", h.auth(h.HandleVendors))
	mux.HandleFunc("/api/vendors/export", h.auth(h.HandleVendorsExport))
	mux.HandleFunc("/api/vendors/import", h.auth(h.HandleVendorsImport))
	mux.HandleFunc("/api/vendors/", h.auth(h.HandleVendorByID))
	mux.HandleFunc("/api/vendor-bills", h.auth(h.HandleVendorBills))
	mux.HandleFunc("/api/vendor-bills/", h.auth(h.HandleVendorBillByID))

	mux.HandleFunc("/api/payments", h.auth(h.HandlePayments))
	mux.HandleFunc("/api/payments/", h.auth(h.HandlePaymentByID))

	mux.HandleFunc("/api/sales", h.auth(h.HandleSales))
	mux.HandleFunc("/api/sales/", h.auth(h.HandleSaleByID))

	mux.HandleFunc("/api/settings", h.auth(h.HandleSettings))

	mux.HandleFunc("/api/reports/period", h.auth(h.HandlePeriodReport))
	mux.HandleFunc("/api/reports/daily", h.auth(h.HandleDailyReport))
	mux.HandleFunc("/api/reports/dashboard", h.auth(h.HandleDashboard))
	mux.HandleFunc("/api/reports/sheets/export", h.auth(h.HandleSheetsExport))
	mux.HandleFunc("/api/reports/sheets/test", h.auth(h.HandleSheetsTest))

	mux.HandleFunc("/api/backup/export", h.auth(h.HandleBackupExport))
	mux.HandleFunc("/api/backup/import", h.auth(h.HandleBackupImport))

	mux.HandleFunc("/api/sync/status", h.auth(h.HandleSyncStatus))
	mux.HandleFunc("/api/sync/logs", h.auth(h.HandleSyncLogs))
}

// bearerToken extracts the session token from the Authorization header
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// auth wraps a handler with session validation
func (h *RESTHandlers) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := h.users.Validate(bearerToken(r)); !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case services.IsValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		log.Printf("Request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// pathID parses the identifier segment following a route prefix. The second
// return value is the remainder ("statement" in /api/customers/3/statement).
func pathID(r *http.Request, prefix string) (models.ID, string, bool) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	rest = strings.Trim(rest, "/")
	parts := strings.SplitN(rest, "/", 2)
	id, ok := models.ParseID(parts[0])
	if !ok || id == 0 {
		return 0, "", false
	}
	if len(parts) == 2 {
		return id, parts[1], true
	}
	return id, "", true
}

func decodeBody(r *http.Request, into interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return services.NewValidationError("invalid JSON body")
	}
	return nil
}

// Auth

// HandleLogin handles POST /api/auth/login
func (h *RESTHandlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &creds); err != nil {
		writeServiceError(w, err)
		return
	}

	session, err := h.users.Login(creds.Username, creds.Password)
	if err != nil {
		if services.IsValidationError(err) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// HandleLogout handles POST /api/auth/logout
func (h *RESTHandlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.users.Logout(bearerToken(r))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleSession handles GET /api/auth/session
func (h *RESTHandlers) HandleSession(w http.ResponseWriter, r *http.Request) {
	session, _ := h.users.Validate(bearerToken(r))
	writeJSON(w, http.StatusOK, session)
}

// HandleChangePassword handles POST /api/auth/password
func (h *RESTHandlers) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	session, _ := h.users.Validate(bearerToken(r))
	var body struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.users.ChangePassword(session.Username, body.OldPassword, body.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Customers

// HandleCustomers handles GET and POST /api/customers
func (h *RESTHandlers) HandleCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query().Get("q")
		var (
			customers []models.Customer
			err       error
		)
		if query != "" {
			customers, err = h.customers.SearchCustomers(query)
		} else {
			customers, err = h.customers.GetAllCustomers()
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, customers)

	case http.MethodPost:
		var customer models.Customer
		if err := decodeBody(r, &customer); err != nil {
			writeServiceError(w, err)
			return
		}
		customer.ID = 0
		if err := h.customers.CreateCustomer(&customer); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, customer)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleCustomerByID handles /api/customers/{id} and its subresources
func (h *RESTHandlers) HandleCustomerByID(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := pathID(r, "/api/customers/")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	switch sub {
	case "statement":
		statement, err := h.customers.Statement(id, r.URL.Query().Get("start"), r.URL.Query().Get("end"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statement)
		return
	case "balance":
		balance, err := h.customers.OutstandingBalance(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]float64{"outstanding": balance})
		return
	case "":
	default:
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		customer, err := h.customers.GetCustomer(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, customer)

	case http.MethodPut:
		var fields models.Customer
		if err := decodeBody(r, &fields); err != nil {
			writeServiceError(w, err)
			return
		}
		customer, err := h.customers.UpdateCustomer(id, fields)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, customer)

	case http.MethodDelete:
		if err := h.customers.DeleteCustomer(id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleCustomersExport handles GET /api/customers/export
func (h *RESTHandlers) HandleCustomersExport(w http.ResponseWriter, r *http.Request) {
	data, err := h.customers.ExportCustomers()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="customers.json"`)
	w.Write(data)
}

// HandleCustomersImport handles POST /api/customers/import
func (h *RESTHandlers) HandleCustomersImport(w http.ResponseWriter, r *http.Request) {
	data, ok := importBody(w, r)
	if !ok {
		return
	}
	count, err := h.customers.ImportCustomers(data)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": count})
}

// importBody reads an upload, bounded against runaway payloads
func importBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return nil, false
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, 64<<20))
	r.Body.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return nil, false
	}
	return data, true
}

// Products

// HandleProducts handles GET and POST /api/products
func (h *RESTHandlers) HandleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query().Get("q")
		var (
			products []models.Product
			err      error
		)
		if query != "" {
			products, err = h.products.SearchProducts(query)
		} else {
			products, err = h.products.GetAllProducts()
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, products)

	case http.MethodPost:
		var product models.Product
		if err := decodeBody(r, &product); err != nil {
			writeServiceError(w, err)
			return
		}
		product.ID = 0
		if err := h.products.CreateProduct(&product); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, product)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleProductByID handles /api/products/{id}
func (h *RESTHandlers) HandleProductByID(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := pathID(r, "/api/products/")
	if !ok || sub != "" {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		product, err := h.products.GetProduct(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)

	case http.MethodPut:
		var fields models.Product
		if err := decodeBody(r, &fields); err != nil {
			writeServiceError(w, err)
			return
		}
		product, err := h.products.UpdateProduct(id, fields)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)

	case http.MethodDelete:
		if err := h.products.DeleteProduct(id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleProductsExport handles GET /api/products/export
func (h *RESTHandlers) HandleProductsExport(w http.ResponseWriter, r *http.Request) {
	data, err := h.products.ExportProducts()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="products.json"`)
	w.Write(data)
}

// HandleProductsImport handles POST /api/products/import
func (h *RESTHandlers) HandleProductsImport(w http.ResponseWriter, r *http.Request) {
	data, ok := importBody(w, r)
	if !ok {
		return
	}
	count, err := h.products.ImportProducts(data)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": count})
}

// Vendors

// HandleVendors handles GET and POST /api/vendors
func (h *RESTHandlers) HandleVendors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		vendors, err := h.vendors.GetAllVendors()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, vendors)

	case http.MethodPost:
		var vendor models.Vendor
		if err := decodeBody(r, &vendor); err != nil {
			writeServiceError(w, err)
			return
		}
		vendor.ID = 0
		if err := h.vendors.CreateVendor(&vendor); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, vendor)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleVendorByID handles /api/vendors/{id}
func (h *RESTHandlers) HandleVendorByID(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := pathID(r, "/api/vendors/")
	if !ok || sub != "" {
		writeError(w, http.StatusBadRequest, "invalid vendor id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		vendor, err := h.vendors.GetVendor(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, vendor)

	case http.MethodPut:
		var fields models.Vendor
		if err := decodeBody(r, &fields); err != nil {
			writeServiceError(w, err)
			return
		}
		vendor, err := h.vendors.UpdateVendor(id, fields)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, vendor)

	case http.MethodDelete:
		if err := h.vendors.DeleteVendor(id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleVendorsExport handles GET /api/vendors/export
func (h *RESTHandlers) HandleVendorsExport(w http.ResponseWriter, r *http.Request) {
	data, err := h.vendors.ExportVendors()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="vendors.json"`)
	w.Write(data)
}

// HandleVendorsImport handles POST /api/vendors/import
func (h *RESTHandlers) HandleVendorsImport(w http.ResponseWriter, r *http.Request) {
	data, ok := importBody(w, r)
	if !ok {
		return
	}
	count, err := h.vendors.ImportVendors(data)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": count})
}

// HandleVendorBills handles GET and POST /api/vendor-bills
func (h *RESTHandlers) HandleVendorBills(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		vendorID, _ := models.ParseID(r.URL.Query().Get("vendorId"))
		bills, err := h.vendors.GetVendorBills(vendorID,
			r.URL.Query().Get("start"), r.URL.Query().Get("end"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bills)

	case http.MethodPost:
		var bill models.VendorBill
		if err := decodeBody(r, &bill); err != nil {
			writeServiceError(w, err)
			return
		}
		bill.ID = 0
		if err := h.vendors.CreateVendorBill(&bill); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, bill)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleVendorBillByID handles /api/vendor-bills/{id}
func (h *RESTHandlers) HandleVendorBillByID(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := pathID(r, "/api/vendor-bills/")
	if !ok || sub != "" {
		writeError(w, http.StatusBadRequest, "invalid vendor bill id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var fields models.VendorBill
		if err := decodeBody(r, &fields); err != nil {
			writeServiceError(w, err)
			return
		}
		bill, err := h.vendors.UpdateVendorBill(id, fields)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bill)

	case http.MethodDelete:
		if err := h.vendors.DeleteVendorBill(id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// Payments

// HandlePayments handles GET and POST /api/payments
func (h *RESTHandlers) HandlePayments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		customerID, _ := models.ParseID(r.URL.Query().Get("customerId"))
		payments, err := h.payments.GetPayments(customerID,
			r.URL.Query().Get("start"), r.URL.Query().Get("end"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payments)

	case http.MethodPost:
		var payment models.Payment
		if err := decodeBody(r, &payment); err != nil {
			writeServiceError(w, err)
			return
		}
		payment.ID = 0
		if err := h.payments.CreatePayment(&payment); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, payment)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandlePaymentByID handles /api/payments/{id}
func (h *RESTHandlers) HandlePaymentByID(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := pathID(r, "/api/payments/")
	if !ok || sub != "" {
		writeError(w, http.StatusBadRequest, "invalid payment id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		payment, err := h.payments.GetPayment(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payment)

	case http.MethodPut:
		var fields models.Payment
		if err := decodeBody(r, &fields); err != nil {
			writeServiceError(w, err)
			return
		}
		payment, err := h.payments.UpdatePayment(id, fields)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payment)

	case http.MethodDelete:
		if err := h.payments.DeletePayment(id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// Sales

// HandleSales handles GET and POST /api/sales
func (h *RESTHandlers) HandleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		customerID, _ := models.ParseID(r.URL.Query().Get("customerId"))
		sales, err := h.sales.GetSales(customerID,
			r.URL.Query().Get("start"), r.URL.Query().Get("end"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sales)

	case http.MethodPost:
		var sale models.Sale
		if err := decodeBody(r, &sale); err != nil {
			writeServiceError(w, err)
			return
		}
		sale.ID = 0
		if err := h.sales.CreateSale(&sale); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sale)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// HandleSaleByID handles /api/sales/{id} and its subresources
func (h *RESTHandlers) HandleSaleByID(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := pathID(r, "/api/sales/")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid sale id")
		return
	}

	switch sub {
	case "qr":
		png, err := h.sales.InvoiceQR(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
		return
	case "invoice":
		sale, err := h.sales.GetSale(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		number, err := h.sales.InvoiceNumber(sale)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"invoiceNumber": number,
			"sale":          sale,
		})
		return
	case "":
	default:
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		sale, err := h.sales.GetSale(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sale)

	case http.MethodPut:
		var fields models.Sale
		if err := decodeBody(r, &fields); err != nil {
			writeServiceError(w, err)
			return
		}
		sale, err := h.sales.UpdateSale(id, fields)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sale)

	case http.MethodDelete:
		if err := h.sales.DeleteSale(id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// Settings

// HandleSettings handles GET and PUT /api/settings
func (h *RESTHandlers) HandleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := h.settings.GetSettings()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)

	case http.MethodPut:
		var fields models.Settings
		if err := decodeBody(r, &fields); err != nil {
			writeServiceError(w, err)
			return
		}
		settings, err := h.settings.UpdateSettings(fields)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// Reports

// HandlePeriodReport handles GET /api/reports/period
func (h *RESTHandlers) HandlePeriodReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.PeriodReport(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleDailyReport handles GET /api/reports/daily
func (h *RESTHandlers) HandleDailyReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.DailyReport(r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleDashboard handles GET /api/reports/dashboard
func (h *RESTHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.Dashboard()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleSheetsExport handles POST /api/reports/sheets/export
func (h *RESTHandlers) HandleSheetsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := h.sheets.ExportDay(r.Context(), r.URL.Query().Get("date")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleSheetsTest handles POST /api/reports/sheets/test
func (h *RESTHandlers) HandleSheetsTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := h.sheets.TestConnection(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Backup

// HandleBackupExport handles GET /api/backup/export
func (h *RESTHandlers) HandleBackupExport(w http.ResponseWriter, r *http.Request) {
	encrypted := r.URL.Query().Get("encrypted") == "true"

	var (
		data []byte
		err  error
	)
	if encrypted {
		data, err = h.backup.ExportEncrypted()
	} else {
		data, err = h.backup.Export()
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if encrypted {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="backup.plenc"`)
	} else {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="backup.json"`)
	}
	w.Write(data)
}

// HandleBackupImport handles POST /api/backup/import
func (h *RESTHandlers) HandleBackupImport(w http.ResponseWriter, r *http.Request) {
	data, ok := importBody(w, r)
	if !ok {
		return
	}
	result, err := h.backup.Import(data)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Sync

// HandleSyncStatus handles GET /api/sync/status
func (h *RESTHandlers) HandleSyncStatus(w http.ResponseWriter, r *http.Request) {
	cursors := make(map[string]int64, len(database.SyncedCollections))
	for _, collection := range database.SyncedCollections {
		seq, err := h.local.LastSeq(collection)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		cursors[collection] = seq
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"enabled": h.sync.Enabled(),
		"running": h.sync.Running(),
		"cursors": cursors,
	})
}

// HandleSyncLogs handles GET /api/sync/logs
func (h *RESTHandlers) HandleSyncLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.local.SyncLogs(100)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
