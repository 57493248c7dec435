// Package errors provides structured domain errors with transport mappings.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

// Failure kinds. Every specific code below belongs to exactly one kind.
const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	CodeNotFound        Code = "NOT_FOUND"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeInvalidState    Code = "INVALID_STATE"
	CodePolicyViolation Code = "POLICY_VIOLATION"
	CodeConflict        Code = "CONFLICT"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

const (
	// Swap errors
	CodeSwapNotFound              Code = "SWAP_NOT_FOUND"
	CodeSwapResponderNotFound     Code = "SWAP_RESPONDER_NOT_FOUND"
	CodeSwapSkillNotFound         Code = "SWAP_SKILL_NOT_FOUND"
	CodeSwapSelfRequest           Code = "SWAP_SELF_REQUEST"
	CodeSwapMessageTooLong        Code = "SWAP_MESSAGE_TOO_LONG"
	CodeSwapOfferedSkillNotOwned  Code = "SWAP_OFFERED_SKILL_NOT_OWNED"
	CodeSwapWantedSkillNotOffered Code = "SWAP_WANTED_SKILL_NOT_OFFERED"
	CodeSwapPendingExists         Code = "SWAP_PENDING_EXISTS"
	CodeSwapNotParticipant        Code = "SWAP_NOT_PARTICIPANT"
	CodeSwapRoleForbidden         Code = "SWAP_ROLE_FORBIDDEN"
	CodeSwapNotPending            Code = "SWAP_NOT_PENDING"
	CodeSwapStatusNotAllowed      Code = "SWAP_STATUS_NOT_ALLOWED"

	// Rating errors
	CodeRatingUserNotFound     Code = "RATING_USER_NOT_FOUND"
	CodeRatingSwapNotAccepted  Code = "RATING_SWAP_NOT_ACCEPTED"
	CodeRatingNotParticipant   Code = "RATING_NOT_PARTICIPANT"
	CodeRatingNotCounterpart   Code = "RATING_NOT_COUNTERPART"
	CodeRatingSelf             Code = "RATING_SELF"
	CodeRatingStarsOutOfRange  Code = "RATING_STARS_OUT_OF_RANGE"
	CodeRatingCommentTooLong   Code = "RATING_COMMENT_TOO_LONG"
	CodeRatingAlreadySubmitted Code = "RATING_ALREADY_SUBMITTED"

	// Session and admin errors
	CodeSessionTokenInvalid Code = "SESSION_TOKEN_INVALID"
	CodeSessionTokenExpired Code = "SESSION_TOKEN_EXPIRED"
	CodeSessionUserMismatch Code = "SESSION_USER_MISMATCH"
	CodeSessionUserBanned   Code = "SESSION_USER_BANNED"
	CodeAdminRequired       Code = "ADMIN_REQUIRED"
	CodeAnnouncementEmpty   Code = "ANNOUNCEMENT_EMPTY"
)

// Kind returns the failure kind a code belongs to.
func (c Code) Kind() Code {
	switch c {
	case CodeNotFound,
		CodeSwapNotFound,
		CodeSwapResponderNotFound,
		CodeSwapSkillNotFound,
		CodeRatingUserNotFound:
		return CodeNotFound

	case CodeUnauthenticated,
		CodeSessionTokenInvalid,
		CodeSessionTokenExpired:
		return CodeUnauthenticated

	case CodeUnauthorized,
		CodeSwapNotParticipant,
		CodeSwapRoleForbidden,
		CodeRatingNotParticipant,
		CodeSessionUserMismatch,
		CodeSessionUserBanned,
		CodeAdminRequired:
		return CodeUnauthorized

	case CodeInvalidState,
		CodeSwapNotPending,
		CodeRatingSwapNotAccepted:
		return CodeInvalidState

	case CodePolicyViolation,
		CodeSwapOfferedSkillNotOwned,
		CodeSwapWantedSkillNotOffered,
		CodeSwapStatusNotAllowed,
		CodeRatingNotCounterpart,
		CodeRatingSelf:
		return CodePolicyViolation

	case CodeConflict,
		CodeSwapPendingExists,
		CodeRatingAlreadySubmitted:
		return CodeConflict

	case CodeInvalidArgument,
		CodeSwapSelfRequest,
		CodeSwapMessageTooLong,
		CodeRatingStarsOutOfRange,
		CodeRatingCommentTooLong,
		CodeAnnouncementEmpty:
		return CodeInvalidArgument

	default:
		return CodeUnknown
	}
}

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c.Kind() {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeInvalidState, CodeConflict:
		return http.StatusConflict
	case CodePolicyViolation:
		return http.StatusUnprocessableEntity
	case CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
