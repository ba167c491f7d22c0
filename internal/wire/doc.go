// Package wire implements the binary request/response protocol spoken over a
// TCP connection: big-endian primitive codecs (Reader, Writer) and the frame
// layouts built on them.
//
// Every frame starts with version(1) | type(1). Requests:
//
//	1 conditional write  nameLen(2) | name | expectedHead(16) | eventId(16) | payloadLen(2) | payload
//	2 write              nameLen(2) | name | eventId(16) | payloadLen(2) | payload
//	3 read               nameLen(2) | name | cursorId(16) | maxCount(2)
//
// Responses:
//
//	1 write succeeded    (empty)
//	2 write failed       errorId(16) | messageLen(2) | message
//	3 read result        { sectionType(1) | body } ... terminated by section 2
//
// Data sections (type 1) carry eventId(16) | len(2) | payload. Ids are sent as
// two 64-bit words, high then low.
package wire
