package upstream

// Default user-facing messages, used when the upstream response carries no
// message of its own.
var opMessages = map[string]string{
	"auth.login": "فشل تسجيل الدخول",
	"auth.me":    "فشل في جلب بيانات المستخدم",

	"reference.my_data": "فشل في جلب بيانات الأطباء والمنتجات",

	"doctors.list":   "فشل في جلب الأطباء",
	"doctors.get":    "فشل في جلب بيانات الطبيب",
	"doctors.create": "فشل في إضافة الطبيب",
	"doctors.update": "فشل في تحديث بيانات الطبيب",
	"doctors.delete": "فشل في حذف الطبيب",
	"doctors.export": "فشل في تصدير الأطباء",

	"pharmacies.list":   "فشل في جلب الصيدليات",
	"pharmacies.create": "فشل في إضافة الصيدلية",
	"pharmacies.update": "فشل في تحديث بيانات الصيدلية",
	"pharmacies.delete": "فشل في حذف الصيدلية",
	"pharmacies.export": "فشل في تصدير الصيدليات",

	"products.list":   "فشل في جلب المنتجات",
	"products.create": "فشل في إضافة المنتج",
	"products.update": "فشل في تحديث المنتج",
	"products.delete": "فشل في حذف المنتج",
	"products.export": "فشل في تصدير المنتجات",

	"visits.list":   "فشل في جلب الزيارات",
	"visits.create": "فشل في إنشاء الزيارة",
	"visits.export": "فشل في تصدير الزيارات",

	"orders.list":   "فشل في جلب الطلبيات",
	"orders.status": "فشل في تحديث حالة الطلبية",
	"orders.export": "فشل في تصدير الطلبيات",

	"sample_requests.list":   "فشل في جلب طلبات العينات",
	"sample_requests.create": "فشل في إنشاء طلب العينات",
	"sample_requests.status": "فشل في تحديث حالة طلب العينات",
	"sample_requests.export": "فشل في تصدير طلبات العينات",

	"marketing_activities.list":   "فشل في جلب الأنشطة التسويقية",
	"marketing_activities.create": "فشل في إنشاء طلب النشاط التسويقي",
	"marketing_activities.status": "فشل في تحديث حالة النشاط التسويقي",
	"marketing_activities.export": "فشل في تصدير الأنشطة التسويقية",

	"admins.list":   "فشل في جلب المشرفين",
	"admins.create": "فشل في إضافة المشرف",
	"admins.update": "فشل في تحديث بيانات المشرف",
	"admins.delete": "فشل في حذف المشرف",
}

var kindMessages = map[Kind]string{
	KindNetwork:      "تعذر الاتصال بالخادم، تحقق من اتصالك بالشبكة",
	KindTimeout:      "انتهت مهلة الاتصال بالخادم",
	KindCanceled:     "تم إلغاء الطلب",
	KindUnauthorized: "انتهت الجلسة، يرجى تسجيل الدخول مجدداً",
	KindForbidden:    "ليس لديك صلاحية لتنفيذ هذا الإجراء",
	KindUnavailable:  "الخدمة غير متاحة حالياً، حاول لاحقاً",
	KindConflict:     "تم تعديل هذا السجل من قبل مستخدم آخر، يرجى التحديث",
}

const genericMessage = "حدث خطأ غير متوقع"

func defaultMessage(op string) string {
	if m, ok := opMessages[op]; ok {
		return m
	}
	return genericMessage
}

// messageFor picks the transport-level message for kinds where the
// operation default would be misleading.
func messageFor(op string, k Kind) string {
	if m, ok := kindMessages[k]; ok {
		return m
	}
	return defaultMessage(op)
}
