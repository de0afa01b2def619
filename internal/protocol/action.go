package protocol

import "encoding/json"

// ActionType is one of the gateway's fixed, opaque action-type strings.
// The core never interprets these beyond routing and logging; each
// constructor below knows the parameter shape its type requires.
type ActionType string

const (
	ActionSendMsg               ActionType = "send_msg"
	ActionSendGroupForwardMsg   ActionType = "send_group_forward_msg"
	ActionSendPrivateForwardMsg ActionType = "send_private_forward_msg"
	ActionDeleteMsg             ActionType = "delete_msg"
	ActionGetMsg                ActionType = "get_msg"
	ActionGetForwardMsg         ActionType = "get_forward_msg"
	ActionGetImage              ActionType = "get_image"
	ActionMarkMsgAsRead         ActionType = "mark_msg_as_read"
	ActionSetGroupKick          ActionType = "set_group_kick"
	ActionSetGroupBan           ActionType = "set_group_ban"
	ActionSetGroupAnonymousBan  ActionType = "set_group_anonymous_ban"
	ActionSetGroupWholeBan      ActionType = "set_group_whole_ban"
	ActionSetGroupLeave         ActionType = "set_group_leave"
	ActionSetGroupAdmin         ActionType = "set_group_admin"
	ActionSetGroupCard          ActionType = "set_group_card"
	ActionSetGroupName          ActionType = "set_group_name"
	ActionSetGroupSpecialTitle  ActionType = "set_group_special_title"
	ActionSendGroupSign         ActionType = "send_group_sign"
	ActionSetFriendAddRequest   ActionType = "set_friend_add_request"
	ActionSetGroupAddRequest    ActionType = "set_group_add_request"
	ActionGetLoginInfo          ActionType = "get_login_info"
	ActionSetQQProfile          ActionType = "set_qq_profile"
	ActionGetStrangerInfo       ActionType = "get_stranger_info"
	ActionGetFriendList         ActionType = "get_friend_list"
	ActionGetUnidirectionalFriendList ActionType = "get_unidirectional_friend_list"
	ActionDeleteFriend                ActionType = "delete_friend"
	ActionDeleteUnidirectionalFriend  ActionType = "delete_unidirectional_friend"
	ActionGetGroupInfo          ActionType = "get_group_info"
	ActionGetGroupList          ActionType = "get_group_list"
	ActionGetGroupMemberInfo    ActionType = "get_group_member_info"
	ActionGetGroupMemberList    ActionType = "get_group_member_list"
	ActionGetGroupHonorInfo     ActionType = "get_group_honor_info"
	ActionCanSendImage          ActionType = "can_send_image"
	ActionCanSendRecord         ActionType = "can_send_record"
	ActionGetVersionInfo        ActionType = "get_version_info"
	ActionSetGroupPortrait      ActionType = "set_group_portrait"
	ActionOcrImage              ActionType = "ocr_image"
	ActionGetGroupSystemMsg     ActionType = "get_group_system_msg"
	ActionUploadPrivateFile     ActionType = "upload_private_file"
	ActionUploadGroupFile       ActionType = "upload_group_file"
	ActionGetGroupFileSystemInfo ActionType = "get_group_file_system_info"
	ActionGetGroupRootFiles      ActionType = "get_group_root_files"
	ActionGetGroupFilesByFolder  ActionType = "get_group_files_by_folder"
	ActionCreateGroupFileFolder  ActionType = "create_group_file_folder"
	ActionDeleteGroupFolder      ActionType = "delete_group_folder"
	ActionDeleteGroupFile        ActionType = "delete_group_file"
	ActionGetGroupFileUrl        ActionType = "get_group_file_url"
	ActionGetStatus              ActionType = "get_status"
	ActionGetGroupAtAllRemain    ActionType = "get_group_at_all_remain"
	ActionHandleQuickOperation   ActionType = ".handle_quick_operation"
	ActionSendGroupNotice        ActionType = "_send_group_notice"
	ActionGetGroupNotice         ActionType = "_get_group_notice"
	ActionDownloadFile           ActionType = "download_file"
	ActionGetOnlineClients       ActionType = "get_online_clients"
	ActionGetGroupMsgHistory     ActionType = "get_group_msg_history"
	ActionSetEssenceMsg          ActionType = "set_essence_msg"
	ActionDeleteEssenceMsg       ActionType = "delete_essence_msg"
	ActionGetEssenceMsgList      ActionType = "get_essence_msg_list"
	ActionGetModelShow           ActionType = "_get_model_show"
	ActionSetModelShow           ActionType = "_set_model_show"
)

// Action is an outbound command to the gateway.
type Action struct {
	Type   ActionType
	Params map[string]any
	EchoID string // non-empty iff the issuer wants the correlated response
	Origin *Event // the triggering event, for logging/context; may be nil
}

// HasEchoID reports whether the action expects a correlated response.
func (a *Action) HasEchoID() bool {
	return a.EchoID != ""
}

// SendMsg builds a send_msg action addressed to a private or group
// target, carrying the flattened segment content.
func SendMsg(segs []Segment, private bool, userID, groupID int64, origin *Event) *Action {
	params := map[string]any{"message": segsToWire(segs)}
	if private {
		params["message_type"] = "private"
		params["user_id"] = userID
	} else {
		params["message_type"] = "group"
		params["group_id"] = groupID
	}
	return &Action{Type: ActionSendMsg, Params: params, Origin: origin}
}

// ForwardNode is one node of a forward-message node list: either a
// custom node (sendName/sendId/content) or a reference to an existing
// message (ReferMsgID).
type ForwardNode struct {
	SendName    string
	SendID      int64
	Content     []Segment
	ReferMsgID  int64 // when non-zero, overrides SendName/SendID/Content
}

func forwardNodesToWire(nodes []ForwardNode) []map[string]any {
	out := make([]map[string]any, len(nodes))
	for i, n := range nodes {
		if n.ReferMsgID != 0 {
			out[i] = map[string]any{
				"type": "node",
				"data": map[string]any{"id": n.ReferMsgID},
			}
			continue
		}
		out[i] = map[string]any{
			"type": "node",
			"data": map[string]any{
				"name":    n.SendName,
				"uin":     n.SendID,
				"content": segsToWire(n.Content),
			},
		}
	}
	return out
}

// SendForwardMsg builds a send_private_forward_msg or
// send_group_forward_msg action carrying a node list.
func SendForwardMsg(nodes []ForwardNode, private bool, userID, groupID int64, origin *Event) *Action {
	if private {
		return &Action{
			Type: ActionSendPrivateForwardMsg,
			Params: map[string]any{
				"user_id":  userID,
				"messages": forwardNodesToWire(nodes),
			},
			Origin: origin,
		}
	}
	return &Action{
		Type: ActionSendGroupForwardMsg,
		Params: map[string]any{
			"group_id": groupID,
			"messages": forwardNodesToWire(nodes),
		},
		Origin: origin,
	}
}

// DeleteMsg builds a delete_msg (recall) action.
func DeleteMsg(messageID int64, origin *Event) *Action {
	return &Action{Type: ActionDeleteMsg, Params: map[string]any{"message_id": messageID}, Origin: origin}
}

// GetMsg builds a get_msg action.
func GetMsg(messageID int64, origin *Event) *Action {
	return &Action{Type: ActionGetMsg, Params: map[string]any{"message_id": messageID}, Origin: origin}
}

// GetForwardMsg builds a get_forward_msg action.
func GetForwardMsg(forwardID string, origin *Event) *Action {
	return &Action{Type: ActionGetForwardMsg, Params: map[string]any{"message_id": forwardID}, Origin: origin}
}

// GetImage builds a get_image action.
func GetImage(file string, origin *Event) *Action {
	return &Action{Type: ActionGetImage, Params: map[string]any{"file": file}, Origin: origin}
}

// MarkMsgAsRead builds a mark_msg_as_read action.
func MarkMsgAsRead(messageID int64, origin *Event) *Action {
	return &Action{Type: ActionMarkMsgAsRead, Params: map[string]any{"message_id": messageID}, Origin: origin}
}

// GroupKick builds a set_group_kick action.
func GroupKick(groupID, userID int64, rejectAddRequest bool, origin *Event) *Action {
	return &Action{
		Type: ActionSetGroupKick,
		Params: map[string]any{
			"group_id":            groupID,
			"user_id":             userID,
			"reject_add_request":  rejectAddRequest,
		},
		Origin: origin,
	}
}

// GroupBan builds a set_group_ban action. duration 0 lifts an existing ban.
func GroupBan(groupID, userID int64, duration int, origin *Event) *Action {
	return &Action{
		Type: ActionSetGroupBan,
		Params: map[string]any{
			"group_id": groupID,
			"user_id":  userID,
			"duration": duration,
		},
		Origin: origin,
	}
}

// GroupAnonymousBan builds a set_group_anonymous_ban action. Unlike
// GroupBan this cannot be lifted.
func GroupAnonymousBan(groupID int64, anonymFlag string, duration int, origin *Event) *Action {
	return &Action{
		Type: ActionSetGroupAnonymousBan,
		Params: map[string]any{
			"group_id":       groupID,
			"anonymous_flag": anonymFlag,
			"duration":       duration,
		},
		Origin: origin,
	}
}

// GroupWholeBan builds a set_group_whole_ban action.
func GroupWholeBan(groupID int64, enable bool, origin *Event) *Action {
	return &Action{
		Type:   ActionSetGroupWholeBan,
		Params: map[string]any{"group_id": groupID, "enable": enable},
		Origin: origin,
	}
}

// GroupLeave builds a set_group_leave action.
func GroupLeave(groupID int64, dismiss bool, origin *Event) *Action {
	return &Action{
		Type:   ActionSetGroupLeave,
		Params: map[string]any{"group_id": groupID, "is_dismiss": dismiss},
		Origin: origin,
	}
}

// SetGroupAdmin builds a set_group_admin action.
func SetGroupAdmin(groupID, userID int64, enable bool, origin *Event) *Action {
	return &Action{
		Type: ActionSetGroupAdmin,
		Params: map[string]any{
			"group_id": groupID,
			"user_id":  userID,
			"enable":   enable,
		},
		Origin: origin,
	}
}

// SetGroupCard builds a set_group_card action.
func SetGroupCard(groupID, userID int64, card string, origin *Event) *Action {
	return &Action{
		Type: ActionSetGroupCard,
		Params: map[string]any{
			"group_id": groupID,
			"user_id":  userID,
			"card":     card,
		},
		Origin: origin,
	}
}

// SetGroupName builds a set_group_name action.
func SetGroupName(groupID int64, name string, origin *Event) *Action {
	return &Action{
		Type:   ActionSetGroupName,
		Params: map[string]any{"group_id": groupID, "group_name": name},
		Origin: origin,
	}
}

// SetGroupSpecialTitle builds a set_group_special_title action. duration
// -1 means the title never expires.
func SetGroupSpecialTitle(groupID, userID int64, title string, duration int, origin *Event) *Action {
	return &Action{
		Type: ActionSetGroupSpecialTitle,
		Params: map[string]any{
			"group_id":      groupID,
			"user_id":       userID,
			"special_title": title,
			"duration":      duration,
		},
		Origin: origin,
	}
}

// GroupSign builds a send_group_sign (daily check-in) action.
func GroupSign(groupID int64, origin *Event) *Action {
	return &Action{Type: ActionSendGroupSign, Params: map[string]any{"group_id": groupID}, Origin: origin}
}

// SetFriendAddRequest builds a set_friend_add_request action, approving
// or rejecting a pending friend request identified by flag.
func SetFriendAddRequest(flag string, approve bool, remark string, origin *Event) *Action {
	return &Action{
		Type: ActionSetFriendAddRequest,
		Params: map[string]any{
			"flag":    flag,
			"approve": approve,
			"remark":  remark,
		},
		Origin: origin,
	}
}

// SetGroupAddRequest builds a set_group_add_request action. addType is
// "add" or "invite"; reason is included in the params only when
// non-empty, whatever approve is.
func SetGroupAddRequest(flag, addType string, approve bool, reason string, origin *Event) *Action {
	params := map[string]any{
		"flag":     flag,
		"sub_type": addType,
		"approve":  approve,
	}
	if reason != "" {
		params["reason"] = reason
	}
	return &Action{Type: ActionSetGroupAddRequest, Params: params, Origin: origin}
}

// GetLoginInfo builds a get_login_info action.
func GetLoginInfo(origin *Event) *Action {
	return &Action{Type: ActionGetLoginInfo, Params: map[string]any{}, Origin: origin}
}

// SetQQProfile builds a set_qq_profile action.
func SetQQProfile(nickname, company, email, college, personalNote string, origin *Event) *Action {
	return &Action{
		Type: ActionSetQQProfile,
		Params: map[string]any{
			"nickname":      nickname,
			"company":       company,
			"email":         email,
			"college":       college,
			"personal_note": personalNote,
		},
		Origin: origin,
	}
}

// GetStrangerInfo builds a get_stranger_info action; also valid for
// friends.
func GetStrangerInfo(userID int64, noCache bool, origin *Event) *Action {
	return &Action{
		Type:   ActionGetStrangerInfo,
		Params: map[string]any{"user_id": userID, "no_cache": noCache},
		Origin: origin,
	}
}

// GetFriendList builds a get_friend_list action.
func GetFriendList(origin *Event) *Action {
	return &Action{Type: ActionGetFriendList, Params: map[string]any{}, Origin: origin}
}

// GetUnidirectionalFriendList builds a get_unidirectional_friend_list action.
func GetUnidirectionalFriendList(origin *Event) *Action {
	return &Action{Type: ActionGetUnidirectionalFriendList, Params: map[string]any{}, Origin: origin}
}

// DeleteFriend builds a delete_friend action.
func DeleteFriend(userID int64, origin *Event) *Action {
	return &Action{Type: ActionDeleteFriend, Params: map[string]any{"user_id": userID}, Origin: origin}
}

// DeleteUnidirectionalFriend builds a delete_unidirectional_friend action.
func DeleteUnidirectionalFriend(userID int64, origin *Event) *Action {
	return &Action{Type: ActionDeleteUnidirectionalFriend, Params: map[string]any{"user_id": userID}, Origin: origin}
}

// GetGroupInfo builds a get_group_info action. Valid for groups not yet
// joined.
func GetGroupInfo(groupID int64, noCache bool, origin *Event) *Action {
	return &Action{
		Type:   ActionGetGroupInfo,
		Params: map[string]any{"group_id": groupID, "no_cache": noCache},
		Origin: origin,
	}
}

// GetGroupList builds a get_group_list action.
func GetGroupList(origin *Event) *Action {
	return &Action{Type: ActionGetGroupList, Params: map[string]any{}, Origin: origin}
}

// GetGroupMemberInfo builds a get_group_member_info action.
func GetGroupMemberInfo(groupID, userID int64, noCache bool, origin *Event) *Action {
	return &Action{
		Type: ActionGetGroupMemberInfo,
		Params: map[string]any{
			"group_id": groupID,
			"user_id":  userID,
			"no_cache": noCache,
		},
		Origin: origin,
	}
}

// GetGroupMemberList builds a get_group_member_list action.
func GetGroupMemberList(groupID int64, noCache bool, origin *Event) *Action {
	return &Action{
		Type:   ActionGetGroupMemberList,
		Params: map[string]any{"group_id": groupID, "no_cache": noCache},
		Origin: origin,
	}
}

// GetGroupHonorInfo builds a get_group_honor_info action. honorType is
// one of talkative/performer/legend/strong_newbie/emotion/all.
func GetGroupHonorInfo(groupID int64, honorType string, origin *Event) *Action {
	return &Action{
		Type:   ActionGetGroupHonorInfo,
		Params: map[string]any{"group_id": groupID, "type": honorType},
		Origin: origin,
	}
}

// CanSendImage builds a can_send_image action.
func CanSendImage(origin *Event) *Action {
	return &Action{Type: ActionCanSendImage, Params: map[string]any{}, Origin: origin}
}

// CanSendRecord builds a can_send_record action.
func CanSendRecord(origin *Event) *Action {
	return &Action{Type: ActionCanSendRecord, Params: map[string]any{}, Origin: origin}
}

// GetVersionInfo builds a get_version_info action.
func GetVersionInfo(origin *Event) *Action {
	return &Action{Type: ActionGetVersionInfo, Params: map[string]any{}, Origin: origin}
}

// GetStatus builds a get_status action.
func GetStatus(origin *Event) *Action {
	return &Action{Type: ActionGetStatus, Params: map[string]any{}, Origin: origin}
}

// SetGroupPortrait builds a set_group_portrait action. file accepts a
// local path, URL, or base64 payload.
func SetGroupPortrait(groupID int64, file string, cache int, origin *Event) *Action {
	return &Action{
		Type: ActionSetGroupPortrait,
		Params: map[string]any{
			"group_id": groupID,
			"file":     file,
			"cache":    cache,
		},
		Origin: origin,
	}
}

// OcrImage builds an ocr_image action. image is an image id as returned
// by a prior GetImage call.
func OcrImage(image string, origin *Event) *Action {
	return &Action{Type: ActionOcrImage, Params: map[string]any{"image": image}, Origin: origin}
}

// GetGroupSystemMsg builds a get_group_system_msg action.
func GetGroupSystemMsg(origin *Event) *Action {
	return &Action{Type: ActionGetGroupSystemMsg, Params: map[string]any{}, Origin: origin}
}

// UploadPrivateFile builds an upload_private_file action. file must be a
// local path.
func UploadPrivateFile(userID int64, file, name string, origin *Event) *Action {
	return &Action{
		Type:   ActionUploadPrivateFile,
		Params: map[string]any{"user_id": userID, "file": file, "name": name},
		Origin: origin,
	}
}

// UploadGroupFile builds an upload_group_file action. An empty
// groupFolderID uploads to the group's file root.
func UploadGroupFile(groupID int64, file, name, groupFolderID string, origin *Event) *Action {
	return &Action{
		Type: ActionUploadGroupFile,
		Params: map[string]any{
			"group_id": groupID,
			"file":     file,
			"name":     name,
			"folder":   groupFolderID,
		},
		Origin: origin,
	}
}

// GetGroupFileSystemInfo builds a get_group_file_system_info action.
func GetGroupFileSystemInfo(groupID int64, origin *Event) *Action {
	return &Action{Type: ActionGetGroupFileSystemInfo, Params: map[string]any{"group_id": groupID}, Origin: origin}
}

// GetGroupRootFiles builds a get_group_root_files action.
func GetGroupRootFiles(groupID int64, origin *Event) *Action {
	return &Action{Type: ActionGetGroupRootFiles, Params: map[string]any{"group_id": groupID}, Origin: origin}
}

// GetGroupFilesByFolder builds a get_group_files_by_folder action.
func GetGroupFilesByFolder(groupID int64, folderID string, origin *Event) *Action {
	return &Action{
		Type:   ActionGetGroupFilesByFolder,
		Params: map[string]any{"group_id": groupID, "folder_id": folderID},
		Origin: origin,
	}
}

// CreateGroupFileFolder builds a create_group_file_folder action. Folders
// can only be created at the file system root.
func CreateGroupFileFolder(groupID int64, folderName string, origin *Event) *Action {
	return &Action{
		Type: ActionCreateGroupFileFolder,
		Params: map[string]any{
			"group_id":  groupID,
			"name":      folderName,
			"parent_id": "/",
		},
		Origin: origin,
	}
}

// DeleteGroupFolder builds a delete_group_folder action.
func DeleteGroupFolder(groupID int64, folderID string, origin *Event) *Action {
	return &Action{
		Type:   ActionDeleteGroupFolder,
		Params: map[string]any{"group_id": groupID, "folder_id": folderID},
		Origin: origin,
	}
}

// DeleteGroupFile builds a delete_group_file action.
func DeleteGroupFile(groupID int64, fileID string, busID int, origin *Event) *Action {
	return &Action{
		Type: ActionDeleteGroupFile,
		Params: map[string]any{
			"group_id": groupID,
			"file_id":  fileID,
			"busid":    busID,
		},
		Origin: origin,
	}
}

// GetGroupFileUrl builds a get_group_file_url action.
func GetGroupFileUrl(groupID int64, fileID string, busID int, origin *Event) *Action {
	return &Action{
		Type: ActionGetGroupFileUrl,
		Params: map[string]any{
			"group_id": groupID,
			"file_id":  fileID,
			"busid":    busID,
		},
		Origin: origin,
	}
}

// GetGroupAtAllRemain builds a get_group_at_all_remain action.
func GetGroupAtAllRemain(groupID int64, origin *Event) *Action {
	return &Action{Type: ActionGetGroupAtAllRemain, Params: map[string]any{"group_id": groupID}, Origin: origin}
}

// HandleQuickOperation builds a .handle_quick_operation action, replying
// to contextEvent's raw frame with operation.
func HandleQuickOperation(contextEvent *Event, operation map[string]any, origin *Event) *Action {
	var ctx any
	if contextEvent != nil && json.Valid([]byte(contextEvent.Raw)) {
		ctx = json.RawMessage(contextEvent.Raw)
	}
	return &Action{
		Type: ActionHandleQuickOperation,
		Params: map[string]any{
			"context":   ctx,
			"operation": operation,
		},
		Origin: origin,
	}
}

// SendGroupNotice builds a _send_group_notice action. imageURL must be a
// local file:// url when present.
func SendGroupNotice(groupID int64, content, imageURL string, origin *Event) *Action {
	params := map[string]any{"group_id": groupID, "content": content}
	if imageURL != "" {
		params["image"] = imageURL
	}
	return &Action{Type: ActionSendGroupNotice, Params: params, Origin: origin}
}

// GetGroupNotice builds a _get_group_notice action.
func GetGroupNotice(groupID int64, origin *Event) *Action {
	return &Action{Type: ActionGetGroupNotice, Params: map[string]any{"group_id": groupID}, Origin: origin}
}

// DownloadFile builds a download_file action, fetching fileURL into the
// gateway's cache directory with threadCount parallel connections.
func DownloadFile(fileURL string, threadCount int, headers []string, origin *Event) *Action {
	return &Action{
		Type: ActionDownloadFile,
		Params: map[string]any{
			"url":          fileURL,
			"thread_count": threadCount,
			"headers":      headers,
		},
		Origin: origin,
	}
}

// GetOnlineClients builds a get_online_clients action.
func GetOnlineClients(noCache bool, origin *Event) *Action {
	return &Action{Type: ActionGetOnlineClients, Params: map[string]any{"no_cache": noCache}, Origin: origin}
}

// GetGroupMsgHistory builds a get_group_msg_history action.
func GetGroupMsgHistory(msgSeq, groupID int64, origin *Event) *Action {
	return &Action{
		Type:   ActionGetGroupMsgHistory,
		Params: map[string]any{"message_seq": msgSeq, "group_id": groupID},
		Origin: origin,
	}
}

// SetEssenceMsg builds a set_essence_msg action, marking messageID as an
// essence (pinned) message.
func SetEssenceMsg(messageID int64, origin *Event) *Action {
	return &Action{Type: ActionSetEssenceMsg, Params: map[string]any{"message_id": messageID}, Origin: origin}
}

// DeleteEssenceMsg builds a delete_essence_msg action.
func DeleteEssenceMsg(messageID int64, origin *Event) *Action {
	return &Action{Type: ActionDeleteEssenceMsg, Params: map[string]any{"message_id": messageID}, Origin: origin}
}

// GetEssenceMsgList builds a get_essence_msg_list action.
func GetEssenceMsgList(groupID int64, origin *Event) *Action {
	return &Action{Type: ActionGetEssenceMsgList, Params: map[string]any{"group_id": groupID}, Origin: origin}
}

// GetModelShow builds a _get_model_show action.
func GetModelShow(model string, origin *Event) *Action {
	return &Action{Type: ActionGetModelShow, Params: map[string]any{"model": model}, Origin: origin}
}

// SetModelShow builds a _set_model_show action.
func SetModelShow(model, modelShow string, origin *Event) *Action {
	return &Action{
		Type:   ActionSetModelShow,
		Params: map[string]any{"model": model, "model_show": modelShow},
		Origin: origin,
	}
}

func segsToWire(segs []Segment) []map[string]any {
	out := make([]map[string]any, len(segs))
	for i, s := range segs {
		data := make(map[string]any, len(s.Data))
		for k, v := range s.Data {
			data[k] = v
		}
		out[i] = map[string]any{"type": string(s.Type), "data": data}
	}
	return out
}
