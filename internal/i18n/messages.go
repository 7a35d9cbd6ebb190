// Package i18n holds the user-facing notification texts.
package i18n

import (
	"fmt"

	"github.com/Domenick1991/paraglide/internal/domain"
)

type Key string

const (
	NewBooking        Key = "booking.new"
	LoadFailed        Key = "booking.load_failed"
	UpdateFailed      Key = "booking.update_failed"
	Confirmed         Key = "booking.confirmed"
	Cancelled         Key = "booking.cancelled"
	Completed         Key = "booking.completed"
	PilotAssigned     Key = "booking.pilot_assigned"
	AlreadyProcessing Key = "booking.already_processing"
	InvalidTransition Key = "booking.invalid_transition"
	Unauthenticated   Key = "auth.unauthenticated"
	NoCompany         Key = "company.not_found"
)

var catalog = map[Key]domain.LocalizedText{
	NewBooking: {
		domain.LocaleKa: "ახალი ჯავშანი: %s",
		domain.LocaleEn: "New booking: %s",
		domain.LocaleRu: "Новое бронирование: %s",
		domain.LocaleAr: "حجز جديد: %s",
		domain.LocaleDe: "Neue Buchung: %s",
		domain.LocaleTr: "Yeni rezervasyon: %s",
	},
	LoadFailed: {
		domain.LocaleKa: "ჯავშნების ჩატვირთვა ვერ მოხერხდა",
		domain.LocaleEn: "Failed to load bookings",
		domain.LocaleRu: "Не удалось загрузить бронирования",
		domain.LocaleDe: "Buchungen konnten nicht geladen werden",
		domain.LocaleTr: "Rezervasyonlar yüklenemedi",
	},
	UpdateFailed: {
		domain.LocaleKa: "ჯავშნის განახლება ვერ მოხერხდა",
		domain.LocaleEn: "Failed to update booking",
		domain.LocaleRu: "Не удалось обновить бронирование",
		domain.LocaleDe: "Buchung konnte nicht aktualisiert werden",
		domain.LocaleTr: "Rezervasyon güncellenemedi",
	},
	Confirmed: {
		domain.LocaleKa: "ჯავშანი დადასტურდა",
		domain.LocaleEn: "Booking confirmed",
		domain.LocaleRu: "Бронирование подтверждено",
		domain.LocaleDe: "Buchung bestätigt",
		domain.LocaleTr: "Rezervasyon onaylandı",
	},
	Cancelled: {
		domain.LocaleKa: "ჯავშანი გაუქმდა",
		domain.LocaleEn: "Booking cancelled",
		domain.LocaleRu: "Бронирование отменено",
		domain.LocaleDe: "Buchung storniert",
		domain.LocaleTr: "Rezervasyon iptal edildi",
	},
	Completed: {
		domain.LocaleKa: "ფრენა დასრულდა",
		domain.LocaleEn: "Booking completed",
		domain.LocaleRu: "Бронирование завершено",
		domain.LocaleDe: "Buchung abgeschlossen",
		domain.LocaleTr: "Rezervasyon tamamlandı",
	},
	PilotAssigned: {
		domain.LocaleKa: "პილოტი დაინიშნა",
		domain.LocaleEn: "Pilot assigned",
		domain.LocaleRu: "Пилот назначен",
		domain.LocaleDe: "Pilot zugewiesen",
		domain.LocaleTr: "Pilot atandı",
	},
	AlreadyProcessing: {
		domain.LocaleKa: "მოთხოვნა უკვე მუშავდება",
		domain.LocaleEn: "This booking is already being updated",
		domain.LocaleRu: "Бронирование уже обновляется",
	},
	InvalidTransition: {
		domain.LocaleKa: "ამ სტატუსიდან ეს მოქმედება შეუძლებელია",
		domain.LocaleEn: "This action is not allowed for the booking's current status",
		domain.LocaleRu: "Действие недоступно для текущего статуса",
	},
	Unauthenticated: {
		domain.LocaleKa: "გთხოვთ, გაიაროთ ავტორიზაცია",
		domain.LocaleEn: "Please sign in",
		domain.LocaleRu: "Пожалуйста, войдите",
	},
	NoCompany: {
		domain.LocaleKa: "კომპანიის პროფილი ვერ მოიძებნა",
		domain.LocaleEn: "No company profile found",
		domain.LocaleRu: "Профиль компании не найден",
	},
}

// Text renders key in locale l, formatting args into the template. Unknown
// keys render as the key itself.
func Text(l domain.Locale, key Key, args ...any) string {
	tmpl, ok := catalog[key]
	if !ok {
		return string(key)
	}
	s := tmpl.Resolve(l)
	if len(args) == 0 {
		return s
	}
	return fmt.Sprintf(s, args...)
}
