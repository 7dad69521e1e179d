package spdm

// writeErrorResponse writes an SPDM ERROR message into dst and returns the
// message length. Protocol failures always surface to the peer as one of
// these; the processing call itself still succeeds.
func (s *Session) writeErrorResponse(dst []byte, errorCode, errorData uint8) int {
	dst[0] = s.responseVersion()
	dst[1] = ResponseError
	dst[2] = errorCode
	dst[3] = errorData
	return errorResponseSize
}
