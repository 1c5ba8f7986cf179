package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/studioreform/booking-api/internal/catalog"
	"github.com/studioreform/booking-api/internal/model"
	"github.com/studioreform/booking-api/internal/notify"
	"github.com/studioreform/booking-api/internal/repository"
	"github.com/studioreform/booking-api/internal/utils"
)

// PurchaseHandler implements the membership purchase workflow:
// member picks a package, submits payment details, an admin verifies
// the payment and approval credits the session ledger.
type PurchaseHandler struct {
	DB          *sql.DB
	Purchases   *repository.PurchaseRepo
	Memberships *repository.MembershipRepo
	Users       *repository.UserRepo
	Notifier    *notify.Notifier
}

func NewPurchaseHandler(db *sql.DB, p *repository.PurchaseRepo, m *repository.MembershipRepo,
	u *repository.UserRepo, n *notify.Notifier) *PurchaseHandler {
	return &PurchaseHandler{DB: db, Purchases: p, Memberships: m, Users: u, Notifier: n}
}

type createPurchaseReq struct {
	PackageID string `json:"package_id"`
}
type submitPaymentReq struct {
	PaymentMethod string `json:"payment_method"`
}
type rejectReq struct {
	Reason string `json:"reason"`
}

func purchaseJSON(p model.Purchase) echo.Map {
	return echo.Map{
		"id":                    p.ID,
		"booking_type":          p.BookingType,
		"package_id":            p.PackageID,
		"package_sessions":      p.PackageSessions,
		"package_validity_days": p.PackageValidityDays,
		"amount":                p.Amount,
		"status":                p.Status,
		"payment_status":        p.PaymentStatus,
		"payment_method":        p.PaymentMethod,
		"reference_number":      p.ReferenceNumber,
		"rejection_reason":      p.RejectionReason,
		"created_at":            p.CreatedAt,
		"confirmed_at":          p.ConfirmedAt,
	}
}

// Packages lists the package catalog. Public.
func (h *PurchaseHandler) Packages(c echo.Context) error {
	pkgs := catalog.All()
	out := make([]echo.Map, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, echo.Map{
			"id":            p.ID,
			"name":          p.Name,
			"category":      p.Category,
			"price":         p.Price,
			"sessions":      p.Sessions,
			"validity_days": p.ValidityDays,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"packages": out})
}

// Create opens a purchase in pending_payment and returns the
// reference number the member quotes with their bank transfer.
func (h *PurchaseHandler) Create(c echo.Context) error {
	uid := currentUserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createPurchaseReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.PackageID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "package_id required"})
	}
	pkg, ok := catalog.Lookup(strings.TrimSpace(req.PackageID))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown package"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p := model.Purchase{
		UserID:              uid,
		BookingType:         model.PurchaseTypeMembership,
		PackageID:           pkg.ID,
		PackageSessions:     pkg.Sessions,
		PackageValidityDays: pkg.ValidityDays,
		Amount:              pkg.Price,
		Status:              model.PurchaseStatusPendingPayment,
		PaymentStatus:       model.PaymentStatusPending,
		ReferenceNumber:     utils.NewReferenceNumber(),
	}
	id, err := h.Purchases.Create(ctx, &p)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	p.ID = id
	return c.JSON(http.StatusCreated, echo.Map{"purchase": purchaseJSON(p)})
}

// SubmitPayment marks the member's payment as sent. Membership
// purchases queue for admin approval; class purchases confirm directly
// without review. The member and the staff are notified by SMS.
func (h *PurchaseHandler) SubmitPayment(c echo.Context) error {
	uid := currentUserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid purchase id"})
	}
	var req submitPaymentReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.PaymentMethod) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_method required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	p, err := h.Purchases.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if err == repository.ErrPurchaseNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "purchase not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if p.UserID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	method := strings.TrimSpace(req.PaymentMethod)
	if p.BookingType == model.PurchaseTypeClass {
		// legacy class purchases confirm on payment, no admin review
		if err := h.Purchases.ConfirmTx(ctx, tx, id, method, time.Now().UTC()); err != nil {
			if err == repository.ErrInvalidState {
				return c.JSON(http.StatusConflict, echo.Map{"error": "purchase is not awaiting payment"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	} else if err := h.Purchases.SubmitPaymentTx(ctx, tx, id, method); err != nil {
		if err == repository.ErrInvalidState {
			return c.JSON(http.StatusConflict, echo.Map{"error": "purchase is not awaiting payment"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	pkgName := p.PackageID
	if pkg, ok := catalog.Lookup(p.PackageID); ok {
		pkgName = pkg.Name
	}
	if buyer, err := h.Users.GetByID(ctx, uid); err == nil {
		h.Notifier.PaymentReceived(ctx, uid, buyer.Phone, pkgName, p.ReferenceNumber)
		if p.BookingType == model.PurchaseTypeMembership {
			// tell the staff a payment is waiting for review
			if phones, err := h.Users.AdminPhones(ctx); err == nil {
				for _, phone := range phones {
					h.Notifier.PaymentSubmitted(ctx, phone, buyer.Name, pkgName, p.ReferenceNumber)
				}
			}
		}
	}

	if p.BookingType == model.PurchaseTypeClass {
		return c.JSON(http.StatusOK, echo.Map{"message": "payment received, purchase confirmed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "payment submitted, awaiting approval"})
}

// MyPurchases lists the member's purchase history.
func (h *PurchaseHandler) MyPurchases(c echo.Context) error {
	uid := currentUserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Purchases.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(list))
	for _, p := range list {
		out = append(out, purchaseJSON(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"purchases": out})
}

// Pending returns the admin approval queue.
func (h *PurchaseHandler) Pending(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Purchases.ListPendingApproval(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(list))
	for _, pw := range list {
		m := purchaseJSON(pw.Purchase)
		m["user_name"] = pw.UserName
		m["user_email"] = pw.UserEmail
		m["user_phone"] = pw.UserPhone
		out = append(out, m)
	}
	return c.JSON(http.StatusOK, echo.Map{"purchases": out})
}

// Approve verifies a submitted payment and credits the buyer's ledger:
// an existing active ledger is extended with the package, otherwise a
// fresh ledger is created and any stale ones are deactivated. Runs in
// one transaction; the member is notified after commit.
func (h *PurchaseHandler) Approve(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid purchase id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	now := time.Now().UTC()

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	p, err := h.Purchases.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if err == repository.ErrPurchaseNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "purchase not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if p.BookingType != model.PurchaseTypeMembership {
		return c.JSON(http.StatusConflict, echo.Map{"error": "not a membership purchase"})
	}
	if err := h.Purchases.ApproveTx(ctx, tx, id, now); err != nil {
		if err == repository.ErrInvalidState {
			return c.JSON(http.StatusConflict, echo.Map{"error": "purchase is not awaiting approval"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	validUntil := now.AddDate(0, 0, p.PackageValidityDays)
	ledger, err := h.Memberships.GetActiveForUserTx(ctx, tx, p.UserID)
	switch err {
	case nil:
		ledger.Extend(p.PackageSessions, validUntil)
		if err := h.Memberships.SaveBalancesTx(ctx, tx, &ledger); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ledger update failed"})
		}
	case repository.ErrMembershipNotFound:
		ledger = model.UserMembership{
			UserID:            p.UserID,
			PackageType:       p.PackageID,
			TotalSessions:     p.PackageSessions,
			RemainingSessions: p.PackageSessions,
			ValidUntil:        validUntil,
			IsActive:          true,
		}
		lid, err := h.Memberships.CreateTx(ctx, tx, &ledger)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ledger create failed"})
		}
		ledger.ID = lid
		if err := h.Memberships.DeactivateOthersTx(ctx, tx, p.UserID, lid); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ledger update failed"})
		}
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Purchases.SetMembershipTx(ctx, tx, p.ID, ledger.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	if buyer, err := h.Users.GetByID(ctx, p.UserID); err == nil {
		pkgName := p.PackageID
		if pkg, ok := catalog.Lookup(p.PackageID); ok {
			pkgName = pkg.Name
		}
		h.Notifier.PurchaseApproved(ctx, p.UserID, buyer.Phone, pkgName, ledger.RemainingSessions, ledger.ValidUntil)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "purchase approved",
		"membership": echo.Map{
			"id":                 ledger.ID,
			"remaining_sessions": ledger.RemainingSessions,
			"valid_until":        ledger.ValidUntil,
		},
	})
}

// Reject turns a submitted payment down with a reason. The member is
// notified after commit.
func (h *PurchaseHandler) Reject(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid purchase id"})
	}
	var req rejectReq
	_ = c.Bind(&req)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	p, err := h.Purchases.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if err == repository.ErrPurchaseNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "purchase not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Purchases.RejectTx(ctx, tx, id, strings.TrimSpace(req.Reason)); err != nil {
		if err == repository.ErrInvalidState {
			return c.JSON(http.StatusConflict, echo.Map{"error": "purchase is not awaiting approval"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	if buyer, err := h.Users.GetByID(ctx, p.UserID); err == nil {
		h.Notifier.PurchaseRejected(ctx, p.UserID, buyer.Phone, p.ReferenceNumber, strings.TrimSpace(req.Reason))
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "purchase rejected"})
}
