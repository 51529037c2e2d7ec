package registry

// OrderPrimaryKey is the data key identifying an order row.
const OrderPrimaryKey = "order_code"

// Delivery status values as they appear on the dashboard.
const (
	StatusWaitingPickup = "Chờ Lấy Hàng"
	StatusDelivering    = "Đang Giao"
	StatusDelivered     = "Giao Thành Công"
	StatusReturned      = "Hoàn"
	StatusCancelled     = "Hủy"
)

// Orders returns the column registry for the order ("vận đơn") grid.
// Labels are the Vietnamese headers the dashboard displays; keys are the
// backing table columns.
func Orders() *Registry {
	r, err := New(OrderPrimaryKey, []Column{
		{Label: "Mã vận đơn", Key: "order_code", Kind: KindReadOnly},
		{Label: "Ngày lên đơn", Key: "order_date", Kind: KindDate, Editable: true},
		{Label: "Tên khách hàng", Key: "customer_name", Kind: KindText, Editable: true},
		{Label: "Số điện thoại", Key: "phone", Kind: KindText, Editable: true},
		{Label: "Địa chỉ", Key: "address", Kind: KindLongText, Editable: true},
		{Label: "Sản phẩm", Key: "product", Kind: KindText, Editable: true},
		{Label: "Số lượng", Key: "quantity", Kind: KindText, Editable: true},
		{Label: "Tiền COD", Key: "cod_amount", Kind: KindText, Editable: true},
		{Label: "Thị trường", Key: "market", Kind: KindEnum, Editable: true,
			EnumValues: []string{"Việt Nam", "Malaysia", "Philippines", "Indonesia", "Thái Lan"}},
		{Label: "Trạng thái giao hàng", Key: "delivery_status", Kind: KindEnum, Editable: true,
			EnumValues: []string{StatusWaitingPickup, StatusDelivering, StatusDelivered, StatusReturned, StatusCancelled}},
		{Label: "Đơn vị vận chuyển", Key: "carrier", Kind: KindEnum, Editable: true,
			EnumValues: []string{"GHN", "GHTK", "J&T", "Ninja Van", "Flash Express"}},
		{Label: "Nhân viên Sale", Key: "sales_staff", Kind: KindText, Editable: true},
		{Label: "Team", Key: "team", Kind: KindEnum, Editable: true,
			EnumValues: []string{"Marketing", "R&D", "Sales", "CSKH"}},
		{Label: "Ghi chú", Key: "note", Kind: KindLongText, Editable: true},
	})
	if err != nil {
		// The order column set is static; a construction failure is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return r
}
