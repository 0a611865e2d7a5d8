package irc

// Server reply names, usable as event names for resolved numerics.
const (
	RPL_WELCOME           = "RPL_WELCOME"
	RPL_YOURHOST          = "RPL_YOURHOST"
	RPL_CREATED           = "RPL_CREATED"
	RPL_MYINFO            = "RPL_MYINFO"
	RPL_ISUPPORT          = "RPL_ISUPPORT"
	RPL_UMODEIS           = "RPL_UMODEIS"
	RPL_LUSERCLIENT       = "RPL_LUSERCLIENT"
	RPL_LUSEROP           = "RPL_LUSEROP"
	RPL_LUSERUNKNOWN      = "RPL_LUSERUNKNOWN"
	RPL_LUSERCHANNELS     = "RPL_LUSERCHANNELS"
	RPL_LUSERME           = "RPL_LUSERME"
	RPL_AWAY              = "RPL_AWAY"
	RPL_UNAWAY            = "RPL_UNAWAY"
	RPL_NOWAWAY           = "RPL_NOWAWAY"
	RPL_WHOISUSER         = "RPL_WHOISUSER"
	RPL_WHOISSERVER       = "RPL_WHOISSERVER"
	RPL_WHOISOPERATOR     = "RPL_WHOISOPERATOR"
	RPL_WHOISIDLE         = "RPL_WHOISIDLE"
	RPL_ENDOFWHOIS        = "RPL_ENDOFWHOIS"
	RPL_WHOISCHANNELS     = "RPL_WHOISCHANNELS"
	RPL_LISTSTART         = "RPL_LISTSTART"
	RPL_LIST              = "RPL_LIST"
	RPL_LISTEND           = "RPL_LISTEND"
	RPL_CHANNELMODEIS     = "RPL_CHANNELMODEIS"
	RPL_CREATIONTIME      = "RPL_CREATIONTIME"
	RPL_NOTOPIC           = "RPL_NOTOPIC"
	RPL_TOPIC             = "RPL_TOPIC"
	RPL_TOPICWHOTIME      = "RPL_TOPICWHOTIME"
	RPL_INVITING          = "RPL_INVITING"
	RPL_VERSION           = "RPL_VERSION"
	RPL_WHOREPLY          = "RPL_WHOREPLY"
	RPL_ENDOFWHO          = "RPL_ENDOFWHO"
	RPL_NAMREPLY          = "RPL_NAMREPLY"
	RPL_ENDOFNAMES        = "RPL_ENDOFNAMES"
	RPL_LINKS             = "RPL_LINKS"
	RPL_ENDOFLINKS        = "RPL_ENDOFLINKS"
	RPL_BANLIST           = "RPL_BANLIST"
	RPL_ENDOFBANLIST      = "RPL_ENDOFBANLIST"
	RPL_INFO              = "RPL_INFO"
	RPL_ENDOFINFO         = "RPL_ENDOFINFO"
	RPL_MOTDSTART         = "RPL_MOTDSTART"
	RPL_MOTD              = "RPL_MOTD"
	RPL_ENDOFMOTD         = "RPL_ENDOFMOTD"
	RPL_YOUREOPER         = "RPL_YOUREOPER"
	RPL_REHASHING         = "RPL_REHASHING"
	RPL_TIME              = "RPL_TIME"
	ERR_NOSUCHNICK        = "ERR_NOSUCHNICK"
	ERR_NOSUCHSERVER      = "ERR_NOSUCHSERVER"
	ERR_NOSUCHCHANNEL     = "ERR_NOSUCHCHANNEL"
	ERR_CANNOTSENDTOCHAN  = "ERR_CANNOTSENDTOCHAN"
	ERR_TOOMANYCHANNELS   = "ERR_TOOMANYCHANNELS"
	ERR_WASNOSUCHNICK     = "ERR_WASNOSUCHNICK"
	ERR_TOOMANYTARGETS    = "ERR_TOOMANYTARGETS"
	ERR_NOORIGIN          = "ERR_NOORIGIN"
	ERR_NORECIPIENT       = "ERR_NORECIPIENT"
	ERR_NOTEXTTOSEND      = "ERR_NOTEXTTOSEND"
	ERR_UNKNOWNCOMMAND    = "ERR_UNKNOWNCOMMAND"
	ERR_NOMOTD            = "ERR_NOMOTD"
	ERR_NONICKNAMEGIVEN   = "ERR_NONICKNAMEGIVEN"
	ERR_ERRONEUSNICKNAME  = "ERR_ERRONEUSNICKNAME"
	ERR_NICKNAMEINUSE     = "ERR_NICKNAMEINUSE"
	ERR_NICKCOLLISION     = "ERR_NICKCOLLISION"
	ERR_UNAVAILRESOURCE   = "ERR_UNAVAILRESOURCE"
	ERR_USERNOTINCHANNEL  = "ERR_USERNOTINCHANNEL"
	ERR_NOTONCHANNEL      = "ERR_NOTONCHANNEL"
	ERR_USERONCHANNEL     = "ERR_USERONCHANNEL"
	ERR_NOTREGISTERED     = "ERR_NOTREGISTERED"
	ERR_NEEDMOREPARAMS    = "ERR_NEEDMOREPARAMS"
	ERR_ALREADYREGISTRED  = "ERR_ALREADYREGISTRED"
	ERR_PASSWDMISMATCH    = "ERR_PASSWDMISMATCH"
	ERR_YOUREBANNEDCREEP  = "ERR_YOUREBANNEDCREEP"
	ERR_KEYSET            = "ERR_KEYSET"
	ERR_CHANNELISFULL     = "ERR_CHANNELISFULL"
	ERR_UNKNOWNMODE       = "ERR_UNKNOWNMODE"
	ERR_INVITEONLYCHAN    = "ERR_INVITEONLYCHAN"
	ERR_BANNEDFROMCHAN    = "ERR_BANNEDFROMCHAN"
	ERR_BADCHANNELKEY     = "ERR_BADCHANNELKEY"
	ERR_BADCHANMASK       = "ERR_BADCHANMASK"
	ERR_NOPRIVILEGES      = "ERR_NOPRIVILEGES"
	ERR_CHANOPRIVSNEEDED  = "ERR_CHANOPRIVSNEEDED"
	ERR_RESTRICTED        = "ERR_RESTRICTED"
	ERR_NOOPERHOST        = "ERR_NOOPERHOST"
	ERR_UMODEUNKNOWNFLAG  = "ERR_UMODEUNKNOWNFLAG"
	ERR_USERSDONTMATCH    = "ERR_USERSDONTMATCH"
)

var replyNames = map[string]string{
	"001": RPL_WELCOME,
	"002": RPL_YOURHOST,
	"003": RPL_CREATED,
	"004": RPL_MYINFO,
	"005": RPL_ISUPPORT,
	"221": RPL_UMODEIS,
	"251": RPL_LUSERCLIENT,
	"252": RPL_LUSEROP,
	"253": RPL_LUSERUNKNOWN,
	"254": RPL_LUSERCHANNELS,
	"255": RPL_LUSERME,
	"301": RPL_AWAY,
	"305": RPL_UNAWAY,
	"306": RPL_NOWAWAY,
	"311": RPL_WHOISUSER,
	"312": RPL_WHOISSERVER,
	"313": RPL_WHOISOPERATOR,
	"317": RPL_WHOISIDLE,
	"318": RPL_ENDOFWHOIS,
	"319": RPL_WHOISCHANNELS,
	"321": RPL_LISTSTART,
	"322": RPL_LIST,
	"323": RPL_LISTEND,
	"324": RPL_CHANNELMODEIS,
	"329": RPL_CREATIONTIME,
	"331": RPL_NOTOPIC,
	"332": RPL_TOPIC,
	"333": RPL_TOPICWHOTIME,
	"341": RPL_INVITING,
	"351": RPL_VERSION,
	"352": RPL_WHOREPLY,
	"315": RPL_ENDOFWHO,
	"353": RPL_NAMREPLY,
	"366": RPL_ENDOFNAMES,
	"364": RPL_LINKS,
	"365": RPL_ENDOFLINKS,
	"367": RPL_BANLIST,
	"368": RPL_ENDOFBANLIST,
	"371": RPL_INFO,
	"374": RPL_ENDOFINFO,
	"375": RPL_MOTDSTART,
	"372": RPL_MOTD,
	"376": RPL_ENDOFMOTD,
	"381": RPL_YOUREOPER,
	"382": RPL_REHASHING,
	"391": RPL_TIME,
	"401": ERR_NOSUCHNICK,
	"402": ERR_NOSUCHSERVER,
	"403": ERR_NOSUCHCHANNEL,
	"404": ERR_CANNOTSENDTOCHAN,
	"405": ERR_TOOMANYCHANNELS,
	"406": ERR_WASNOSUCHNICK,
	"407": ERR_TOOMANYTARGETS,
	"409": ERR_NOORIGIN,
	"411": ERR_NORECIPIENT,
	"412": ERR_NOTEXTTOSEND,
	"421": ERR_UNKNOWNCOMMAND,
	"422": ERR_NOMOTD,
	"431": ERR_NONICKNAMEGIVEN,
	"432": ERR_ERRONEUSNICKNAME,
	"433": ERR_NICKNAMEINUSE,
	"436": ERR_NICKCOLLISION,
	"437": ERR_UNAVAILRESOURCE,
	"441": ERR_USERNOTINCHANNEL,
	"442": ERR_NOTONCHANNEL,
	"443": ERR_USERONCHANNEL,
	"451": ERR_NOTREGISTERED,
	"461": ERR_NEEDMOREPARAMS,
	"462": ERR_ALREADYREGISTRED,
	"464": ERR_PASSWDMISMATCH,
	"465": ERR_YOUREBANNEDCREEP,
	"467": ERR_KEYSET,
	"471": ERR_CHANNELISFULL,
	"472": ERR_UNKNOWNMODE,
	"473": ERR_INVITEONLYCHAN,
	"474": ERR_BANNEDFROMCHAN,
	"475": ERR_BADCHANNELKEY,
	"476": ERR_BADCHANMASK,
	"481": ERR_NOPRIVILEGES,
	"482": ERR_CHANOPRIVSNEEDED,
	"484": ERR_RESTRICTED,
	"491": ERR_NOOPERHOST,
	"501": ERR_UMODEUNKNOWNFLAG,
	"502": ERR_USERSDONTMATCH,
}

// ReplyName resolves a three-digit numeric to its reply name.
func ReplyName(code string) (string, bool) {
	name, ok := replyNames[code]
	return name, ok
}
