package utils

// MaskPhoneNumber masks a phone number for secure logging
// Keeps first 3 and last 4 characters visible, masks the rest
//
// Examples:
//   - "+15551230000" -> "+15****0000"
//   - "+123456" -> "+12****3456"
//   - "short" -> "****"
func MaskPhoneNumber(phone string) string {
	if len(phone) <= 6 {
		return "****"
	}

	return phone[:3] + "****" + phone[len(phone)-4:]
}
